package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"download-sink/internal/channel"
	"download-sink/internal/models"
)

var logger = loggo.GetLogger("sink.handlers")

// ChannelHandler serves a method channel over HTTP
type ChannelHandler struct {
	channel *channel.Channel
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(ch *channel.Channel) *ChannelHandler {
	return &ChannelHandler{channel: ch}
}

// HandleInvoke handles POST /channels/{channel}/{method} requests
func (h *ChannelHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vars := mux.Vars(r)
	if vars["channel"] != h.channel.Name() {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown channel %q", vars["channel"]), nil)
		return
	}
	method := vars["method"]

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, channel.MaxArgumentsSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Arguments too large", err)
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to read arguments", err)
		return
	}

	res := h.channel.Invoke(r.Context(), channel.Call{
		Method:    method,
		Arguments: channel.JSONArguments(body),
	})
	respondResult(w, method, res)
}

func respondResult(w http.ResponseWriter, method string, res channel.Result) {
	switch res.Kind {
	case channel.KindSuccess:
		respondJSON(w, http.StatusOK, models.ChannelResponse{
			Success: true,
			Result:  res.Value,
		})
	case channel.KindNotImplemented:
		respondJSON(w, http.StatusNotImplemented, models.NotImplementedResponse{
			NotImplemented: true,
			Method:         method,
		})
	default:
		status := http.StatusInternalServerError
		if res.Code == channel.CodeInvalidArgument {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, models.ErrorResponse{
			Error:   res.Code,
			Message: res.Message,
		})
	}
}
