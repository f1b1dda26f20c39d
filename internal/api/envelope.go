package api

import (
	"encoding/json"
	"net/http"

	"github.com/hailam/chesslink/internal/game"
)

// MessageType tags a response message for presentation.
type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
	MessageSuccess MessageType = "success"
)

// Message is one human-readable line in a response.
type Message struct {
	Message     string      `json:"message"`
	MessageType MessageType `json:"messageType"`
}

// Response is the outbound envelope, used both for the synchronous
// reply to the acting channel and for the asynchronous push to the
// other seat.
type Response struct {
	StatusCode   int          `json:"statusCode"`
	ConnectionID *string      `json:"connectionId"`
	Messages     []Message    `json:"messages"`
	Data         *game.Record `json:"data"`
}

// Encode marshals the response for the wire.
func (r Response) Encode() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		// The envelope only holds marshal-safe types; an error here
		// is a programming bug, reported as a bare 500.
		return []byte(`{"statusCode":500,"connectionId":null,"messages":[],"data":null}`)
	}
	return data
}

func respond(status int, channelID string, data *game.Record, messages ...Message) Response {
	var ch *string
	if channelID != "" {
		ch = &channelID
	}
	if messages == nil {
		messages = []Message{}
	}
	return Response{
		StatusCode:   status,
		ConnectionID: ch,
		Messages:     messages,
		Data:         data,
	}
}

func ok(channelID string, data *game.Record, messages ...Message) Response {
	return respond(http.StatusOK, channelID, data, messages...)
}

func badRequest(channelID, message string) Response {
	return respond(http.StatusBadRequest, channelID, nil, Message{Message: message, MessageType: MessageError})
}

func notFound(channelID, message string) Response {
	return respond(http.StatusNotFound, channelID, nil, Message{Message: message, MessageType: MessageError})
}

func serverError(channelID string) Response {
	return respond(http.StatusInternalServerError, channelID, nil,
		Message{Message: "something went wrong, please retry", MessageType: MessageError})
}

func successMessage(text string) Message {
	return Message{Message: text, MessageType: MessageSuccess}
}

func infoMessage(text string) Message {
	return Message{Message: text, MessageType: MessageInfo}
}
