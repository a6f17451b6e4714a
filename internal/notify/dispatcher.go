package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/restakelabs/risk-oracle/internal/events"
)

// Dispatcher posts out-of-band webhook notifications after score updates
// and rebalances. It subscribes to the event manager; delivery failures
// are logged and never affect the operation that emitted the event.
type Dispatcher struct {
	webhookURL string
	client     *http.Client
	log        zerolog.Logger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(webhookURL string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("component", "notify").Logger(),
	}
}

// Attach subscribes the dispatcher to the event manager.
func (d *Dispatcher) Attach(ev *events.Manager) {
	ev.Subscribe(d.handle)
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	User  string `json:"user,omitempty"`
}

func (d *Dispatcher) handle(e events.Event) {
	var n notification

	switch e.Type {
	case events.RiskScoreUpdated:
		n = notification{
			Title: "Risk Score Updated",
			Body:  fmt.Sprintf("The risk score for %v has been updated to %v.", e.Data["avs"], e.Data["new_score"]),
		}
	case events.RebalanceComplete:
		user, _ := e.Data["user"].(string)
		n = notification{
			Title: "Funds Rebalanced",
			Body:  fmt.Sprintf("Moved %v units into %v.", e.Data["moved_total"], e.Data["target"]),
			User:  user,
		}
	default:
		return
	}

	d.send(n)
}

func (d *Dispatcher) send(n notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		d.log.Error().Err(err).Msg("Failed to encode notification")
		return
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		d.log.Error().Err(err).Str("title", n.Title).Msg("Failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		d.log.Warn().Int("status", resp.StatusCode).Str("title", n.Title).Msg("Notification rejected")
		return
	}

	d.log.Debug().Str("title", n.Title).Msg("Notification sent")
}
