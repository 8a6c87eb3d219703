package export

import (
	"time"

	"github.com/iksnae/msghelp/internal"
)

var baseTime = time.Date(2024, 4, 3, 10, 0, 0, 0, time.UTC)

func at(minute int) int64 {
	return baseTime.Add(time.Duration(minute) * time.Minute).UnixMilli()
}

// sampleHistory is newest first, as the store returns it
func sampleHistory() []internal.Message {
	return []internal.Message{
		{Text: "Build is green", Timestamp: at(5), Direction: internal.DirectionIncoming, Platform: "whatsapp", SessionID: "whatsapp::Team::chat-b", ChatTitle: "Team"},
		{Text: "See you at 6", Timestamp: at(2), Direction: internal.DirectionIncoming, Platform: "whatsapp", SessionID: "whatsapp::Alice::chat-a", ChatTitle: "Alice",
			ReplyTo: &internal.ReplyTo{Sender: "You", Text: "Dinner tonight?"}},
		{Text: "Dinner tonight?", Timestamp: at(1), Direction: internal.DirectionOutgoing, Platform: "whatsapp", SessionID: "whatsapp::Alice::chat-a", ChatTitle: "Alice"},
	}
}
