package internal

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CommandType names a cross-component message
type CommandType string

const (
	CmdRequestSuggestion CommandType = "REQUEST_SUGGESTION"
	CmdShowSuggestions   CommandType = "SHOW_SUGGESTIONS"
	CmdResetState        CommandType = "RESET_STATE"
	CmdScanNow           CommandType = "SCAN_NOW"
	CmdGetDebugInfo      CommandType = "GET_DEBUG_INFO"
)

// Command is a request addressed to the engine
type Command struct {
	Type        CommandType `json:"type"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// DebugInfo is the GET_DEBUG_INFO answer
type DebugInfo struct {
	ExistingMessagesCount int    `json:"existingMessagesCount"`
	RecentCount           int    `json:"recentCount"`
	CurrentSessionID      string `json:"currentSessionId"`
	LastChatChangeTime    string `json:"lastChatChangeTime"`
	StorageCount          int    `json:"storageCount"`
	IsInitialized         bool   `json:"isInitialized"`
}

// CommandResult acknowledges a command
type CommandResult struct {
	OK      bool       `json:"ok"`
	Error   string     `json:"error,omitempty"`
	Debug   *DebugInfo `json:"debug,omitempty"`
	Outcome string     `json:"outcome,omitempty"`
}

func (e *Engine) handleCommand(cmd Command) CommandResult {
	log.Debug().Str("command", string(cmd.Type)).Msg("handling command")

	switch cmd.Type {
	case CmdResetState:
		e.resetCapture()
		e.cancel(timerChatChange)
		e.session = SessionInfo{}
		e.tracked = false
		e.tracker.Reset()
		log.Info().Msg("state reset complete")
		return CommandResult{OK: true}

	case CmdGetDebugInfo:
		return CommandResult{OK: true, Debug: e.debugInfo()}

	case CmdScanNow:
		if e.page == nil {
			return CommandResult{Error: "no page observed yet"}
		}
		if !e.tracked {
			e.detectChatChange()
		}
		res, err := e.runScan(false)
		if err != nil {
			return CommandResult{Error: err.Error()}
		}
		return CommandResult{OK: true, Outcome: res.Outcome.String()}

	case CmdRequestSuggestion:
		e.requestSuggestion()
		return CommandResult{OK: true}

	case CmdShowSuggestions:
		if cmd.Error != "" {
			e.notifier.ShowError(errors.New(cmd.Error))
		} else {
			e.notifier.ShowSuggestions(cmd.Suggestions)
		}
		return CommandResult{OK: true}

	default:
		return CommandResult{Error: "unknown command " + string(cmd.Type)}
	}
}

func (e *Engine) debugInfo() *DebugInfo {
	info := &DebugInfo{
		ExistingMessagesCount: len(e.existing),
		RecentCount:           len(e.recent),
		CurrentSessionID:      "None",
		LastChatChangeTime:    "None",
		IsInitialized:         e.initialized,
	}
	if !e.session.IsZero() {
		info.CurrentSessionID = e.session.SessionID
	}
	if !e.changedAt.IsZero() {
		info.LastChatChangeTime = e.changedAt.Format(time.RFC3339)
	}

	all, err := e.store.All(e.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable for debug info")
	} else {
		info.StorageCount = len(all)
	}
	return info
}
