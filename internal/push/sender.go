package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/avelar/hometask/internal/model"
	"github.com/avelar/hometask/internal/store"
)

// pushService lets tests substitute the webpush transport.
type pushService interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Sender fans a reminder out to every subscription in the household.
// It satisfies the reminder package's Notifier interface.
type Sender struct {
	svc    pushService
	subs   *store.PushStore
	logger *slog.Logger
}

func NewSender(svc *Service, subs *store.PushStore, logger *slog.Logger) *Sender {
	return &Sender{svc: svc, subs: subs, logger: logger}
}

// Notify sends the reminder to all of the household's devices. Expired
// subscriptions are pruned; other delivery failures are logged and the
// remaining subscriptions still get their copy.
func (s *Sender) Notify(householdID, taskID int64, title, body string) {
	subs, err := s.subs.ListByHousehold(householdID)
	if err != nil {
		s.logger.Error("list push subscriptions", "household_id", householdID, "error", err)
		return
	}

	payload := Payload{
		Title: title,
		Body:  body,
		URL:   "/tasks",
		Tag:   fmt.Sprintf("task-%d", taskID),
	}
	for i := range subs {
		sub := &subs[i]
		err := s.svc.Send(sub, payload)
		if errors.Is(err, ErrExpired) {
			if err := s.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				s.logger.Error("prune expired subscription", "endpoint", sub.Endpoint, "error", err)
			}
			continue
		}
		if err != nil {
			s.logger.Warn("push delivery failed", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
