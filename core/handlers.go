package core

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const CalendarName = "LST Onsite availability"

type Handlers interface {
	PostEvents(gctx *gin.Context)
	ListEvents(gctx *gin.Context)
	GetFeed(gctx *gin.Context)
	GetEvents(gctx *gin.Context)
	DeleteEvents(gctx *gin.Context)
	ExportEvents(gctx *gin.Context)
	ImportEvents(gctx *gin.Context)
	GetLocations(gctx *gin.Context)
	GetHealth(gctx *gin.Context)
}

type handlers struct {
	repository Repository
	loc        *time.Location
	now        func() time.Time
}

// NewHandlers serves the entry API. Form dates are read in loc.
func NewHandlers(repository Repository, loc *time.Location) Handlers {
	if loc == nil {
		loc = time.UTC
	}

	return &handlers{repository: repository, loc: loc, now: time.Now}
}

func (h *handlers) PostEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req EntryRequest

	err := gctx.ShouldBindJSON(&req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to bind JSON", err))

		return
	}

	input, err := ParseEntry(req, h.loc)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("entry validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("entry validation failed", err))

		return
	}

	// unknown places get a fallback color from the normalizer; the API refuses them
	err = ValidateLocation(input.Location)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("entry validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("entry validation failed", err))

		return
	}

	input.CreatedBy = actingUser(gctx)

	record, err := ToStorage(*input)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("entry validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("entry validation failed", err))

		return
	}

	savedEvent, err := h.repository.SaveEvent(ctx, record)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("saving event failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("saving event failed", ErrOperationFailed))

		return
	}

	logEvent(gctx, savedEvent).Msg("entry added")

	gctx.JSON(http.StatusCreated, ToDisplay(savedEvent))
}

func (h *handlers) ListEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	window, err := h.parseWindow(gctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("invalid range")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid range", err))

		return
	}

	events, err := h.repository.ListEvents(ctx, window)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("listing events failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("listing events failed", ErrOperationFailed))

		return
	}

	display := make([]DisplayEvent, 0, len(events))
	for _, e := range events {
		display = append(display, ToDisplay(e))
	}

	gctx.JSON(http.StatusOK, display)
}

// GetFeed serves the calendar grid. Records go out in storage form because
// the grid treats end bounds as exclusive.
func (h *handlers) GetFeed(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	window, err := h.parseWindow(gctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("invalid range")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("invalid range", err))

		return
	}

	events, err := h.repository.ListEvents(ctx, window)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("listing events failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("listing events failed", ErrOperationFailed))

		return
	}

	feed := make([]FeedEntry, 0, len(events))
	for _, e := range events {
		feed = append(feed, NewFeedEntry(e))
	}

	gctx.JSON(http.StatusOK, feed)
}

func (h *handlers) GetEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	// Read body
	body, err := io.ReadAll(gctx.Request.Body)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to read request body")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to read request body", err))

		return
	}

	// GET requests carry no body
	if len(body) != 0 {
		log.Ctx(ctx).Error().Msg("request body is not empty")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("request body is not empty"))

		return
	}

	id := gctx.Param("id")
	if len(id) == 0 {
		log.Ctx(ctx).Error().Msg("parameter 'id' is required")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'id' is required"))

		return
	}

	event, err := h.repository.GetEventById(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			log.Ctx(ctx).Info().Str("id", id).Msg("event not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", ErrEventNotFound))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("getting event failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("getting event failed", ErrOperationFailed))

		return
	}

	gctx.JSON(http.StatusOK, ToDisplay(event))
}

func (h *handlers) DeleteEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id := gctx.Param("id")
	if len(id) == 0 {
		log.Ctx(ctx).Error().Msg("parameter 'id' is required")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'id' is required"))

		return
	}

	event, err := h.repository.DeleteEvent(ctx, id, actingUser(gctx))
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			log.Ctx(ctx).Info().Str("id", id).Msg("event not found")
			gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", ErrEventNotFound))

			return
		}

		log.Ctx(ctx).Error().Err(err).Msg("deleting event failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("deleting event failed", ErrOperationFailed))

		return
	}

	logEvent(gctx, event).Msg("entry deleted")

	gctx.JSON(http.StatusOK, ToDisplay(event))
}

func (h *handlers) ExportEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	events, err := h.repository.ListEvents(ctx, Window{})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("listing events failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("listing events failed", ErrOperationFailed))

		return
	}

	gctx.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ExportICS(CalendarName, events, h.now())))
}

type ImportRejection struct {
	UID   string `json:"uid"`
	Error string `json:"error"`
}

// ImportResult lists what an import stored. Import is not atomic: when the
// store fails midway, Error is set and Imported holds the entries already saved.
type ImportResult struct {
	Imported []DisplayEvent    `json:"imported"`
	Rejected []ImportRejection `json:"rejected"`
	Error    string            `json:"error,omitempty"`
}

func (h *handlers) ImportEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	entries, err := ParseICS(gctx.Request.Body, h.loc)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to parse calendar")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to parse calendar", err))

		return
	}

	result := ImportResult{Imported: make([]DisplayEvent, 0), Rejected: make([]ImportRejection, 0)}
	user := actingUser(gctx)

	for _, entry := range entries {
		record, err := h.importEntry(entry, user)
		if err != nil {
			result.Rejected = append(result.Rejected, ImportRejection{UID: entry.UID, Error: err.Error()})
			continue
		}

		saved, err := h.repository.SaveEvent(ctx, record)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("uid", entry.UID).Int("imported", len(result.Imported)).Msg("saving event failed")

			result.Error = "saving event " + entry.UID + " failed: " + ErrOperationFailed.Error()
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, result)

			return
		}

		logEvent(gctx, saved).Str("uid", entry.UID).Msg("entry imported")
		result.Imported = append(result.Imported, ToDisplay(saved))
	}

	gctx.JSON(http.StatusOK, result)
}

func (h *handlers) importEntry(entry ImportedEntry, user string) (*EventRecord, error) {
	if entry.Err != nil {
		return nil, entry.Err
	}

	err := ValidateLocation(entry.Input.Location)
	if err != nil {
		return nil, err
	}

	input := *entry.Input
	input.CreatedBy = user

	return ToStorage(input)
}

type LocationOption struct {
	Value Location `json:"value"`
	Label string   `json:"label"`
	Color string   `json:"color"`
}

func (h *handlers) GetLocations(gctx *gin.Context) {
	options := make([]LocationOption, 0, len(Locations))
	for _, l := range Locations {
		options = append(options, LocationOption{Value: l, Label: locationLabel(l), Color: ColorOf(l)})
	}

	gctx.JSON(http.StatusOK, options)
}

func (h *handlers) GetHealth(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	err := h.repository.Ping(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("store unreachable")
		gctx.AbortWithStatusJSON(http.StatusServiceUnavailable, NewError("store unreachable", ErrOperationFailed))

		return
	}

	gctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseWindow reads the start/end query parameters the calendar grid sends.
func (h *handlers) parseWindow(gctx *gin.Context) (Window, error) {
	var (
		window Window
		err    error
	)

	if v := gctx.Query("start"); v != "" {
		window.From, err = h.parseBound(v)
		if err != nil {
			return Window{}, err
		}
	}

	if v := gctx.Query("end"); v != "" {
		window.To, err = h.parseBound(v)
		if err != nil {
			return Window{}, err
		}
	}

	if !window.From.IsZero() && !window.To.IsZero() && window.To.Before(window.From) {
		return Window{}, errors.New("end must not be before start")
	}

	return window, nil
}

func (h *handlers) parseBound(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, v, h.loc); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(h.loc), nil
	}

	t, err := time.ParseInLocation(DateTimeLayout, v, h.loc)
	if err != nil {
		return time.Time{}, errors.New("invalid range bound " + v)
	}

	return t, nil
}

func actingUser(gctx *gin.Context) string {
	return gctx.GetString(gin.AuthUserKey)
}

func locationLabel(l Location) string {
	if l == LocationRemote {
		return "Remote"
	}

	return string(l)
}

func logEvent(gctx *gin.Context, event *EventRecord) *zerolog.Event {
	user := actingUser(gctx)
	if user == "" {
		user = "anonymous"
	}

	return log.Ctx(gctx.Request.Context()).Info().
		Str("user", user).
		Str("id", event.Id).
		Str("name_person", event.PersonName).
		Str("place", string(event.Location)).
		Bool("all_day", event.FullDay).
		Time("start", event.Start).
		Time("end", event.End)
}
