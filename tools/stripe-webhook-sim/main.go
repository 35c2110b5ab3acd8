package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

// Posts a signed fake Stripe subscription event at the billing webhook.
// Useful for local testing without a Stripe account.
func main() {
	var (
		baseURL      = flag.String("base-url", getenv("BASE_URL", "http://localhost:8085"), "billing service base url")
		evtType      = flag.String("type", getenv("STRIPE_EVENT_TYPE", "customer.subscription.updated"), "stripe event type")
		clinic       = flag.String("clinic-id", getenv("CLINIC_ID", ""), "clinic_id metadata")
		tier         = flag.String("tier", getenv("TIER", "core"), "tier metadata")
		intelligence = flag.Bool("intelligence", false, "intelligence_addon metadata")
		secret       = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*clinic) == "" {
		fatal("CLINIC_ID is required")
	}

	now := time.Now().UTC()
	eventID := fmt.Sprintf("evt_test_%d", now.UnixNano())

	payload, err := buildEventJSON(eventID, *evtType, now, *clinic, *tier, *intelligence)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/billing/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	fmt.Printf("status=%d\n", resp.StatusCode)
}

func buildEventJSON(eventID, eventType string, t time.Time, clinicID, tier string, intelligence bool) ([]byte, error) {
	switch eventType {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        eventType,
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":     "sub_test_123",
				"object": "subscription",
				"status": "active",
				"metadata": map[string]any{
					"clinic_id":          clinicID,
					"tier":               tier,
					"intelligence_addon": fmt.Sprintf("%t", intelligence),
				},
			},
		},
	})
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
