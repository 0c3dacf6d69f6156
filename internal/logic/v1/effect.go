package v1

import "github.com/duynhne/account-service/internal/core/domain"

// UI receives the side effects of a screen action.
type UI interface {
	domain.Notifier
	domain.Navigator
}

// Navigation is a request to move the client to Route, dropping PopUp from history.
type Navigation struct {
	Route domain.Route `json:"route"`
	PopUp domain.Route `json:"pop_up"`
}

// Effect is the result of a screen action as the presentation layer renders it.
type Effect struct {
	Messages []domain.MessageKey `json:"messages,omitempty"`
	Navigate *Navigation         `json:"navigate,omitempty"`
	Session  *domain.Session     `json:"session,omitempty"`
	// Shared is set when concurrent identical actions were collapsed into this one.
	Shared bool `json:"shared,omitempty"`
}

// ShowMessage queues a notification.
func (e *Effect) ShowMessage(key domain.MessageKey) {
	e.Messages = append(e.Messages, key)
}

// NavigateAndClear records the navigation request; a later call replaces an earlier one.
func (e *Effect) NavigateAndClear(route, popUp domain.Route) {
	e.Navigate = &Navigation{Route: route, PopUp: popUp}
}

// Replay forwards the recorded effects to ui in order.
func (e Effect) Replay(ui UI) {
	if ui == nil {
		return
	}
	for _, key := range e.Messages {
		ui.ShowMessage(key)
	}
	if e.Navigate != nil {
		ui.NavigateAndClear(e.Navigate.Route, e.Navigate.PopUp)
	}
}
