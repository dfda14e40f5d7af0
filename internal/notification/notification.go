/*
Copyright 2025 Finlens Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package notification delivers webhook events to the configured endpoint.
// Delivery is retried with exponential backoff; a missing webhook URL
// disables delivery without error.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/finlens/finlens/config"
)

const maxDeliveryAttempts = 4

// webhookClient is shared so tests can intercept its transport.
var webhookClient = &http.Client{Timeout: 10 * time.Second}

// NewWebhook is the payload envelope posted to the webhook endpoint.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// SendWebhook posts the event to the configured webhook URL, retrying
// transient failures. It returns nil when no webhook is configured.
func SendWebhook(ctx context.Context, webhook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	body, err := json.Marshal(webhook)
	if err != nil {
		return errors.Wrap(err, "marshaling webhook payload")
	}

	operation := func() error {
		return postOnce(ctx, conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, body)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDeliveryAttempts), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return errors.Wrapf(err, "delivering webhook %s", webhook.Event)
	}

	logrus.WithField("event", webhook.Event).Info("webhook delivered")
	return nil
}

func postOnce(ctx context.Context, url string, headers map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := webhookClient.Do(req)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logrus.Error(err)
		}
	}(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err = errors.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(err)
	}
	return err
}

// NotifyError logs the error and forwards it to the webhook endpoint as a
// system.error event. Delivery runs in the background.
func NotifyError(systemError error) {
	logrus.Error(systemError)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		event := NewWebhook{
			Event: "system.error",
			Payload: map[string]string{
				"error": systemError.Error(),
				"time":  time.Now().Format(time.RFC3339),
			},
		}
		if err := SendWebhook(ctx, event); err != nil {
			logrus.Error(err)
		}
	}()
}
