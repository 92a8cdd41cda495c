package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/stacktag/internal/validation"
)

const maxBodyBytes = 1 << 20

// predictRequest is the POST /predict body. Unknown fields are ignored.
type predictRequest struct {
	Text []string `json:"text" validate:"required,min=1,dive,required"`
	TopK *int     `json:"top_k,omitempty" validate:"omitempty,min=1,max=100"`
}

type predictResponse struct {
	Predictions [][]string `json:"predictions"`
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error(), verr.Fields)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	k := s.topK
	if req.TopK != nil {
		k = *req.TopK
	}

	preds, err := s.predictor.Predict(r.Context(), req.Text, k)
	if err != nil {
		slog.Error("prediction failed", "texts", len(req.Text), "error", err)
		respondError(w, http.StatusInternalServerError, "prediction failed", nil)
		return
	}
	respondJSON(w, http.StatusOK, predictResponse{Predictions: preds})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondText(w, http.StatusOK, "ok")
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	respondText(w, http.StatusOK, "Hello World!")
}

func (s *Server) handleTestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, testPage); err != nil {
		slog.Error("write response", "error", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Error("write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string, fields []validation.FieldError) {
	respondJSON(w, status, errorResponse{Error: msg, Fields: fields})
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("write response", "error", err)
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head><title>stacktag</title></head>
<body>
  <form id="predictForm">
    <label for="text">Question title:</label><br>
    <input type="text" id="text" name="text" size="60" value="How to create a list in python?"><br>
    <label for="top_k">Tags:</label>
    <input type="number" id="top_k" name="top_k" min="1" max="100" value="5">
    <input type="submit" value="Predict">
  </form>
  <pre id="result"></pre>
  <script>
    document.getElementById('predictForm').onsubmit = function (event) {
      event.preventDefault();
      var body = {
        text: [document.getElementById('text').value],
        top_k: parseInt(document.getElementById('top_k').value, 10)
      };
      fetch('/predict', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify(body)
      })
        .then(function (resp) { return resp.text(); })
        .then(function (text) { document.getElementById('result').textContent = text; });
    };
  </script>
</body>
</html>
`
