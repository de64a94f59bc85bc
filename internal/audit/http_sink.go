/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package audit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"wallet-ledger-go/internal/models"

	"golang.org/x/net/http2"
)

const maxErrorBody = 512

// HTTPSink POSTs each event's JSON payload to an endpoint
type HTTPSink struct {
	endpoint string
	client   http.Client
}

func NewHTTPSink(endpoint string, timeout time.Duration) (*HTTPSink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("audit http sink requires an endpoint")
	}
	client, err := createHttpClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create audit http client: %w", err)
	}
	return &HTTPSink{endpoint: endpoint, client: client}, nil
}

func createHttpClient(timeout time.Duration) (http.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   5 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// Deliver treats 2xx as accepted. Other 4xx responses, apart from 408 and
// 429, are rejections that a retry cannot fix.
func (s *HTTPSink) Deliver(ctx context.Context, event models.AuditEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(event.Payload))
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.Id)
	req.Header.Set("X-Event-Type", event.EventType)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting audit event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err = fmt.Errorf("audit endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ErrPermanent, err)
	}
	return err
}

func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
