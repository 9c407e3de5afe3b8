package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"LumiFM/config"
	"LumiFM/core/audio"
	"LumiFM/core/auth"
	"LumiFM/core/catalog"
	"LumiFM/core/lyrics"
	"LumiFM/core/player"
	"LumiFM/logger"
	"LumiFM/model"
)

// APIHandler bundles the player core, catalog and preloader for HTTP handlers.
type APIHandler struct {
	player    *player.Player
	catalog   *catalog.Catalog
	preloader *audio.Preloader
	cfg       *config.Config
}

// NewAPIHandler creates an APIHandler. The preloader may be nil;
// audio requests then always redirect to the source URI.
func NewAPIHandler(pl *player.Player, cat *catalog.Catalog, pre *audio.Preloader, cfg *config.Config) *APIHandler {
	return &APIHandler{player: pl, catalog: cat, preloader: pre, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write JSON response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------- 播放意图 ----------

// GetPlayerHandler returns the current playback snapshot.
func (h *APIHandler) GetPlayerHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	h.player.Play()
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.player.Pause()
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) TogglePlayHandler(w http.ResponseWriter, r *http.Request) {
	h.player.TogglePlay()
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	h.player.Next()
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) PreviousHandler(w http.ResponseWriter, r *http.Request) {
	h.player.Previous()
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// SeekHandler jumps to a position. Out-of-range values are clamped, not rejected.
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.player.Seek(req.Seconds)
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.player.SetVolume(req.Volume)
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) ToggleMuteHandler(w http.ResponseWriter, r *http.Request) {
	h.player.ToggleMute()
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

func (h *APIHandler) CycleModeHandler(w http.ResponseWriter, r *http.Request) {
	mode := h.player.CyclePlayMode()
	writeJSON(w, http.StatusOK, map[string]string{"playMode": string(mode)})
}

func (h *APIHandler) SelectTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID int64 `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := h.catalog.Get(req.TrackID); !ok {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	h.player.SelectTrack(req.TrackID)
	writeJSON(w, http.StatusOK, h.player.Snapshot())
}

// ---------- 曲目与歌词 ----------

func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Tracks())
}

// StreamAudioHandler serves a track's audio. Warmed sources are served
// straight from the preloader cache, everything else redirects to the
// source URI (presigned object URL or static path).
func (h *APIHandler) StreamAudioHandler(w http.ResponseWriter, r *http.Request) {
	track, ok := h.trackFromRequest(w, r)
	if !ok {
		return
	}
	if track.AudioSource == "" {
		writeError(w, http.StatusNotFound, "track has no audio source")
		return
	}

	if h.preloader != nil {
		if handle := h.preloader.Get(track.AudioSource); handle != nil {
			if data := handle.Bytes(); data != nil {
				w.Header().Set("Content-Type", "application/octet-stream")
				w.Header().Set("Content-Length", strconv.Itoa(len(data)))
				w.Write(data)
				return
			}
		}
	}
	http.Redirect(w, r, track.AudioSource, http.StatusFound)
}

// GetLyricsHandler returns a track's lyric lines; with ?at=SECONDS the
// response carries the active line index and per-line progress at that time.
func (h *APIHandler) GetLyricsHandler(w http.ResponseWriter, r *http.Request) {
	track, ok := h.trackFromRequest(w, r)
	if !ok {
		return
	}

	resp := map[string]interface{}{
		"trackId": track.ID,
		"lines":   track.Lyrics,
	}
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := strconv.ParseFloat(at, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'at' value")
			return
		}
		idx := lyrics.ActiveLineIndex(track.Lyrics, t)
		resp["activeLine"] = idx
		resp["nextLine"] = lyrics.NextLineIndex(track.Lyrics, t)
		resp["lineProgress"] = lyrics.Progress(track.Lyrics, idx, t, h.cfg.LyricFallbackSeconds)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportLyricsHandler exports lyrics as LRC text or a JSON bundle.
func (h *APIHandler) ExportLyricsHandler(w http.ResponseWriter, r *http.Request) {
	track, ok := h.trackFromRequest(w, r)
	if !ok {
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "lrc":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, lyrics.FormatLRC(track.Lyrics))
	case "json":
		data, err := lyrics.ExportBundle(track, track.Lyrics)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "unknown export format")
	}
}

// ImportLyricsHandler replaces a track's lyrics from LRC, plain text or a
// JSON bundle. Plain text requires ?interval=SECONDS for uniform spacing.
func (h *APIHandler) ImportLyricsHandler(w http.ResponseWriter, r *http.Request) {
	track, ok := h.trackFromRequest(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var imported []model.LyricLine
	switch r.URL.Query().Get("format") {
	case "", "lrc":
		imported, err = lyrics.ParseLRC(string(body))
	case "plain":
		interval := 5.0
		if s := r.URL.Query().Get("interval"); s != "" {
			interval, err = strconv.ParseFloat(s, 64)
			if err != nil || interval <= 0 {
				writeError(w, http.StatusBadRequest, "invalid 'interval' value")
				return
			}
		}
		imported, err = lyrics.ParsePlain(string(body), interval)
	case "json":
		var bundle *lyrics.Bundle
		bundle, err = lyrics.ImportBundle(body)
		if err == nil {
			imported = bundle.Lyrics
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown import format")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalog.SetLyrics(track.ID, imported); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trackId": track.ID, "lines": len(imported)})
}

// ShiftLyricsHandler applies a timing offset to every line of a track.
func (h *APIHandler) ShiftLyricsHandler(w http.ResponseWriter, r *http.Request) {
	track, ok := h.trackFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		OffsetSeconds float64 `json:"offsetSeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	shifted := lyrics.ShiftAll(track.Lyrics, req.OffsetSeconds)
	if err := h.catalog.SetLyrics(track.ID, shifted); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trackId": track.ID, "lines": len(shifted)})
}

// RetimeLyricHandler moves one line's start time.
func (h *APIHandler) RetimeLyricHandler(w http.ResponseWriter, r *http.Request) {
	track, ok := h.trackFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Line      int     `json:"line"`
		StartTime float64 `json:"startTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	retimed, err := lyrics.RetimeLine(track.Lyrics, req.Line, req.StartTime, h.cfg.LyricFallbackSeconds)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.catalog.SetLyrics(track.ID, retimed); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trackId": track.ID, "lines": len(retimed)})
}

// ---------- 管理端曲目维护 ----------

// CreateTrackHandler adds a track to the end of the catalog.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string  `json:"title"`
		Artist   string  `json:"artist"`
		Album    string  `json:"album"`
		Duration float64 `json:"duration"`
		AudioKey string  `json:"audioKey"`
		CoverKey string  `json:"coverKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.Artist == "" || req.AudioKey == "" {
		writeError(w, http.StatusBadRequest, "title, artist and audioKey are required")
		return
	}

	track := &model.Track{
		Title:    req.Title,
		Artist:   req.Artist,
		Album:    req.Album,
		Duration: req.Duration,
		AudioKey: req.AudioKey,
		CoverKey: req.CoverKey,
	}
	id, err := h.catalog.AddTrack(r.Context(), track)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// DeleteTrackHandler removes a track and its lyrics from the catalog.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	if err := h.catalog.RemoveTrack(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, "track not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id})
}

// SetDurationHandler stores the probed duration for a track.
func (h *APIHandler) SetDurationHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	var req struct {
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Duration <= 0 {
		writeError(w, http.StatusBadRequest, "'duration' must be a positive number")
		return
	}
	if err := h.catalog.SetDuration(id, req.Duration); err != nil {
		if errors.Is(err, catalog.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, "track not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "duration": req.Duration})
}

// ---------- 管理端认证 ----------

// LoginHandler issues an admin token after a bcrypt password check.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AdminPasswordHash == "" {
		writeError(w, http.StatusForbidden, "admin surface disabled")
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !auth.CheckPasswordHash(req.Password, h.cfg.AdminPasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// AuthMiddleware checks for a valid admin JWT on mutating lyric routes.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "authorization header is required")
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}
		if _, err := auth.ParseToken(parts[1], h.cfg.JWTSecret); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// ---------- helpers ----------

func (h *APIHandler) trackFromRequest(w http.ResponseWriter, r *http.Request) (*model.Track, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return nil, false
	}
	track, ok := h.catalog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "track not found")
		return nil, false
	}
	return track, true
}
