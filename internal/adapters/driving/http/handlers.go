package httpx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

var errMissingToken = &domain.Error{
	Kind:       domain.KindPermissionDenied,
	StatusCode: http.StatusUnauthorized,
	Message:    "access token required",
}

// provisionPayload is the body of create-stream and the first websocket message.
type provisionPayload struct {
	AccessToken     string          `json:"accessToken"`
	TeamName        string          `json:"teamName" validate:"required,max=256"`
	OwnerID         string          `json:"ownerId"`
	OwnerEmail      string          `json:"ownerEmail" validate:"omitempty,email"`
	Members         []domain.Member `json:"members" validate:"dive"`
	CreateFolders   bool            `json:"createFolders"`
	IconBase64      string          `json:"iconBase64"`
	IconContentType string          `json:"iconContentType"`
}

func (p provisionPayload) request() (domain.ProvisionRequest, error) {
	req := domain.ProvisionRequest{
		TeamName:      p.TeamName,
		OwnerID:       p.OwnerID,
		OwnerEmail:    p.OwnerEmail,
		Members:       p.Members,
		CreateFolders: p.CreateFolders,
	}
	if strings.TrimSpace(p.IconBase64) == "" {
		return req, nil
	}
	icon, err := decodeIcon(p.IconBase64, p.IconContentType)
	if err != nil {
		return req, err
	}
	req.Icon = icon
	return req, nil
}

// decodeIcon accepts raw base64 or a data URL.
func decodeIcon(encoded, contentType string) (*domain.Icon, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		header, data, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "iconBase64 is not a valid data URL", Err: domain.ErrInvalidInput}
		}
		if contentType == "" {
			contentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		encoded = data
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "iconBase64 is not valid base64", Err: errors.Join(domain.ErrInvalidInput, err)}
	}
	return &domain.Icon{Data: data, ContentType: contentType}, nil
}

type finalizePayload struct {
	AccessToken string          `json:"accessToken"`
	TeamName    string          `json:"teamName" validate:"required,max=256"`
	Members     []domain.Member `json:"members" validate:"dive"`
}

type teamPayload struct {
	AccessToken string `json:"accessToken"`
	TeamID      string `json:"teamId" validate:"required"`
}

type tokenPayload struct {
	AccessToken string `json:"accessToken"`
}

// eventLog collects events for endpoints that answer with a single document.
type eventLog struct {
	mu      sync.Mutex
	events  []domain.Event
	observe func(domain.Event)
}

func (l *eventLog) Emit(ev domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	if l.observe != nil {
		l.observe(ev)
	}
}

func (r *Router) handleCreateStream(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload provisionPayload
	if !r.decodeBody(w, req, &payload) {
		return
	}
	token := accessToken(req, payload.AccessToken)
	if token == "" {
		writeDomainError(w, errMissingToken)
		return
	}
	provReq, err := payload.request()
	if err == nil {
		err = validateStruct(payload)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sink := newNDJSONSink(w, r.logger, r.recordEvent)
	_, err = r.svc.Provision(req.Context(), token, provReq, sink)
	r.recordRun("provision", err)
	if err != nil {
		r.logger.Warn("provisioning failed", "team", provReq.TeamName, "kind", domain.KindOf(err), "error", err)
		if !sink.emittedError() {
			sink.Emit(domain.ErrorEvent("provisioning failed", err))
		}
	}
}

func (r *Router) handleFinalize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload finalizePayload
	if !r.decodeBody(w, req, &payload) {
		return
	}
	token := accessToken(req, payload.AccessToken)
	if token == "" {
		writeDomainError(w, errMissingToken)
		return
	}
	if err := validateStruct(payload); err != nil {
		writeDomainError(w, err)
		return
	}
	events := &eventLog{observe: r.recordEvent}
	result, err := r.svc.Finalize(req.Context(), token, domain.FinalizeRequest{
		TeamName: payload.TeamName,
		Members:  payload.Members,
	}, events)
	r.recordRun("finalize", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result": result,
		"events": events.events,
	})
}

func (r *Router) handleFolders(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload teamPayload
	if !r.decodeBody(w, req, &payload) {
		return
	}
	token := accessToken(req, payload.AccessToken)
	if token == "" {
		writeDomainError(w, errMissingToken)
		return
	}
	if err := validateStruct(payload); err != nil {
		writeDomainError(w, err)
		return
	}
	report, err := r.svc.CreateFolders(req.Context(), token, strings.TrimSpace(payload.TeamID),
		driven.EventSinkFunc(r.recordEvent))
	r.recordRun("folders", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (r *Router) handleUploadIcon(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	token := bearerToken(req)
	if token == "" {
		writeDomainError(w, errMissingToken)
		return
	}
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+multipartOverhead)
	if err := req.ParseMultipartForm(r.maxUpload + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(w, &domain.Error{
				Kind:       domain.KindPayloadTooLarge,
				StatusCode: http.StatusRequestEntityTooLarge,
				Message:    fmt.Sprintf("image must be under %d MB", r.maxUpload>>20),
			})
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	teamID := strings.TrimSpace(req.FormValue("teamId"))
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "teamid is required")
		return
	}
	file, header, err := req.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	// One extra byte lets the service report the oversize upload.
	data, err := io.ReadAll(io.LimitReader(file, r.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}
	icon := domain.Icon{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		FileName:    header.Filename,
	}
	result, err := r.svc.UploadIcon(req.Context(), token, teamID, icon)
	r.recordRun("icon", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleTestIcon(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload teamPayload
	if !r.decodeBody(w, req, &payload) {
		return
	}
	token := accessToken(req, payload.AccessToken)
	if token == "" {
		writeDomainError(w, errMissingToken)
		return
	}
	if err := validateStruct(payload); err != nil {
		writeDomainError(w, err)
		return
	}
	report, err := r.svc.CheckIconAccess(req.Context(), token, strings.TrimSpace(payload.TeamID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (r *Router) handleTestGraph(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload tokenPayload
	if req.ContentLength != 0 {
		if !r.decodeBody(w, req, &payload) {
			return
		}
	}
	token := accessToken(req, payload.AccessToken)
	if token == "" {
		writeDomainError(w, errMissingToken)
		return
	}
	user, err := r.svc.WhoAmI(req.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": user,
	})
}

func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	token := bearerToken(req)
	if token == "" {
		writeDomainError(w, errMissingToken)
		return
	}
	email := strings.TrimSpace(req.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter required")
		return
	}
	user, err := r.svc.LookupUser(req.Context(), token, email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (r *Router) handleProvisionWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(2*r.maxUpload + multipartOverhead)
	sink := newWSSink(conn, r.logger, r.recordEvent)

	var payload provisionPayload
	if err := conn.ReadJSON(&payload); err != nil {
		sink.Emit(domain.ErrorEvent("invalid provisioning request", &domain.Error{
			Kind: domain.KindInvalidInput, Message: "first message must be a JSON provisioning request",
			Err: errors.Join(domain.ErrInvalidInput, err),
		}))
		sink.close(websocket.CloseUnsupportedData, "invalid request")
		return
	}
	token := accessToken(req, payload.AccessToken)
	provReq, err := payload.request()
	if err == nil {
		err = validateStruct(payload)
	}
	if err == nil && token == "" {
		err = errMissingToken
	}
	if err != nil {
		sink.Emit(domain.ErrorEvent("invalid provisioning request", err))
		sink.close(websocket.ClosePolicyViolation, "invalid request")
		return
	}

	// The run stops when the client goes away.
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_, err = r.svc.Provision(ctx, token, provReq, sink)
	r.recordRun("provision", err)
	if err != nil {
		r.logger.Warn("provisioning failed", "team", provReq.TeamName, "kind", domain.KindOf(err), "error", err)
		if !sink.emittedError() {
			sink.Emit(domain.ErrorEvent("provisioning failed", err))
		}
	}
	sink.close(websocket.CloseNormalClosure, "done")
}

func (r *Router) decodeBody(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, 2*r.maxUpload+multipartOverhead)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
