package bridge

import (
	"github.com/iksnae/msghelp/internal"
	"github.com/rs/zerolog/log"
)

// Notifier pushes engine signals to connected relays
type Notifier struct {
	server *Server
}

var _ internal.Notifier = (*Notifier)(nil)

// Notifier returns a notifier broadcasting through s
func (s *Server) Notifier() *Notifier {
	return &Notifier{server: s}
}

func (n *Notifier) ShowLoading() {
	n.send(TypeShowLoading, nil)
}

func (n *Notifier) ShowWaiting() {
	n.send(TypeShowWaiting, nil)
}

func (n *Notifier) ShowSuggestions(suggestions []string) {
	if suggestions == nil {
		suggestions = []string{}
	}
	n.send(TypeShowSuggestions, SuggestionsPayload{Suggestions: suggestions})
}

func (n *Notifier) ShowError(err error) {
	n.send(TypeShowSuggestions, SuggestionsPayload{Suggestions: []string{}, Error: err.Error()})
}

func (n *Notifier) send(typ string, payload any) {
	if err := n.server.Broadcast(typ, payload); err != nil {
		log.Warn().Err(err).Str("type", typ).Msg("relay broadcast failed")
	}
}
