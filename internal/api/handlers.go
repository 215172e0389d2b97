package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chromaflow/internal/app"
	"chromaflow/internal/csvio"
	"chromaflow/internal/items"
	"chromaflow/internal/logging"
	"chromaflow/internal/query"
	"chromaflow/internal/workflow"
)

func predicatesFromQuery(values url.Values) query.Predicates {
	shipped, _ := strconv.ParseBool(values.Get("showShipped"))
	return query.Predicates{
		ShowShipped: shipped,
		Shop:        values.Get("shop"),
		Status:      values.Get("status"),
		ItemType:    values.Get("item"),
		Material:    values.Get("material"),
		FP:          values.Get("fp"),
		Search:      values.Get("search"),
	}
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) (app.View, bool) {
	view, err := s.ctrl.View(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return app.View{}, false
	}
	return view, true
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	var sortCfg *query.SortConfig
	if key := values.Get("sort"); key != "" {
		cfg, err := query.ParseSortConfig(key, values.Get("dir"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sortCfg = &cfg
	}
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	list := query.Filter(view.Items, predicatesFromQuery(values))
	if sortCfg != nil {
		list = query.Sort(list, *sortCfg)
	}
	if list == nil {
		list = []items.Item{}
	}
	s.writeJSON(w, http.StatusOK, ItemsResponse{Items: list, Total: len(view.Items), Revision: view.Revision})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, query.Stats(query.Filter(view.Items, predicatesFromQuery(r.URL.Query()))))
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, query.Distinct(view.Items))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	userID, admin := s.caller(r)
	s.writeJSON(w, http.StatusOK, StateResponse{
		Dirty:         view.Dirty,
		Saving:        view.Saving,
		PendingRemote: view.PendingRemote,
		Revision:      view.Revision,
		Count:         len(view.Items),
		UserID:        userID,
		Admin:         admin,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="items.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := csvio.Write(w, view.Items); err != nil {
		s.logger.Debug("export write failed", logging.Error(err))
	}
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	shop, err := workflow.ParseShop(req.Shop)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.ctrl.Advance(r.Context(), req.IDs, shop)
	if errors.Is(err, app.ErrShopRequired) {
		s.writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), NeedsShop: result.NeedsShop})
		return
	}
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AdvanceResponse{Touched: result.Touched, NeedsShop: result.NeedsShop})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	status, err := workflow.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	shop, err := workflow.ParseShop(req.Shop)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := s.ctrl.SetStatus(r.Context(), req.IDs, status, shop)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !s.decode(w, r, &req) {
		return
	}
	n, err := s.ctrl.Delete(r.Context(), req.IDs)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Revert(r.Context()); err != nil {
		s.writeControllerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImport reads a CSV body, either raw or as the "file" field of a
// multipart form.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode, err := items.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	enc := s.encoding
	if value := r.URL.Query().Get("encoding"); value != "" {
		if enc, err = csvio.ParseEncoding(value); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	body, err := s.importBody(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parsed, err := s.parser.ParseReader(bytes.NewReader(body), enc)
	if errors.Is(err, csvio.ErrNoRows) {
		s.writeError(w, http.StatusUnprocessableEntity, "no valid rows found in CSV")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.ctrl.Import(r.Context(), parsed, mode)
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fromImportResult(result, len(parsed)))
}

func (s *Server) importBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	err := s.ctrl.Save(r.Context())
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, app.ErrNothingToSave), errors.Is(err, app.ErrSaveInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrClosed), errors.Is(err, context.Canceled):
		s.writeControllerError(w, err)
	default:
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "save request failed", "remote_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store connectivity"),
			logging.String(logging.FieldImpact, "changes remain unsaved"))
		s.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
