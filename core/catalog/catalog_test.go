package catalog

import (
	"context"
	"errors"
	"testing"

	"LumiFM/config"
	"LumiFM/model"
)

type fakeTrackRepo struct {
	tracks []*model.Track
	nextID int64
	err    error

	createErr error
}

func (f *fakeTrackRepo) CreateTrack(track *model.Track, order int) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	id := f.nextID + 100 // 与预置曲目的 ID 错开
	row := *track
	row.ID = id
	f.tracks = append(f.tracks, &row)
	return id, nil
}

func (f *fakeTrackRepo) GetTrackByID(id int64) (*model.Track, error) {
	for _, t := range f.tracks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTrackRepo) GetAllTracks() ([]*model.Track, error) { return f.tracks, f.err }

func (f *fakeTrackRepo) UpdateTrackDuration(trackID int64, duration float64) error {
	for _, t := range f.tracks {
		if t.ID == trackID {
			t.Duration = duration
		}
	}
	return nil
}

func (f *fakeTrackRepo) DeleteTrack(trackID int64) error {
	kept := f.tracks[:0]
	for _, t := range f.tracks {
		if t.ID != trackID {
			kept = append(kept, t)
		}
	}
	f.tracks = kept
	return nil
}

type fakeLyricRepo struct {
	lines      map[int64][]model.LyricLine
	replaceErr error
	replaced   int64
}

func (f *fakeLyricRepo) GetLinesByTrackID(trackID int64) ([]model.LyricLine, error) {
	return f.lines[trackID], nil
}

func (f *fakeLyricRepo) ReplaceLines(trackID int64, lines []model.LyricLine) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if f.lines == nil {
		f.lines = make(map[int64][]model.LyricLine)
	}
	f.lines[trackID] = lines
	f.replaced = trackID
	return nil
}

func (f *fakeLyricRepo) DeleteLines(trackID int64) error {
	delete(f.lines, trackID)
	return nil
}

func testCatalog(t *testing.T, trackRepo *fakeTrackRepo, lyricRepo *fakeLyricRepo) *Catalog {
	t.Helper()
	cfg := &config.Config{}
	c := New(trackRepo, lyricRepo, cfg)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestCatalog_LoadResolvesStaticSources(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{
		{ID: 1, Title: "one", AudioKey: "one.mp3", CoverKey: "one.jpg"},
		{ID: 2, Title: "two", AudioKey: "two.mp3"},
	}}
	c := testCatalog(t, trackRepo, &fakeLyricRepo{})

	tracks := c.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	if tracks[0].AudioSource != "/static/audio/one.mp3" {
		t.Errorf("AudioSource = %q", tracks[0].AudioSource)
	}
	if tracks[0].CoverSource != "/static/covers/one.jpg" {
		t.Errorf("CoverSource = %q", tracks[0].CoverSource)
	}
}

func TestCatalog_LoadAttachesValidLyrics(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	lyricRepo := &fakeLyricRepo{lines: map[int64][]model.LyricLine{
		1: {{StartTime: 0, Text: "a"}, {StartTime: 5, Text: "b"}},
	}}
	c := testCatalog(t, trackRepo, lyricRepo)

	track, ok := c.Get(1)
	if !ok {
		t.Fatal("Get(1) missed")
	}
	if len(track.Lyrics) != 2 {
		t.Errorf("got %d lyric lines, want 2", len(track.Lyrics))
	}
}

func TestCatalog_LoadDropsInvalidLyrics(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	lyricRepo := &fakeLyricRepo{lines: map[int64][]model.LyricLine{
		1: {{StartTime: 10, Text: "late"}, {StartTime: 5, Text: "early"}},
	}}
	c := testCatalog(t, trackRepo, lyricRepo)

	track, _ := c.Get(1)
	if len(track.Lyrics) != 0 {
		t.Errorf("invalid lyrics attached: %v", track.Lyrics)
	}
}

func TestCatalog_LoadPropagatesRepoError(t *testing.T) {
	trackRepo := &fakeTrackRepo{err: errors.New("db down")}
	c := New(trackRepo, &fakeLyricRepo{}, &config.Config{})
	if err := c.Load(context.Background()); err == nil {
		t.Error("Load with failing repo should return error")
	}
}

func TestCatalog_GetMissReturnsFalse(t *testing.T) {
	c := testCatalog(t, &fakeTrackRepo{}, &fakeLyricRepo{})
	if _, ok := c.Get(99); ok {
		t.Error("Get(99) = true on empty catalog")
	}
}

func TestCatalog_SetLyricsPersistsAndNotifies(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	lyricRepo := &fakeLyricRepo{}
	c := testCatalog(t, trackRepo, lyricRepo)

	var notified []model.Track
	c.OnUpdate(func(tracks []model.Track) { notified = tracks })

	lines := []model.LyricLine{{StartTime: 0, Text: "a"}, {StartTime: 3, Text: "b"}}
	if err := c.SetLyrics(1, lines); err != nil {
		t.Fatalf("SetLyrics: %v", err)
	}

	if lyricRepo.replaced != 1 {
		t.Error("lyrics not persisted to repository")
	}
	track, _ := c.Get(1)
	if len(track.Lyrics) != 2 {
		t.Errorf("catalog lyrics = %v", track.Lyrics)
	}
	if len(notified) != 1 || len(notified[0].Lyrics) != 2 {
		t.Errorf("update callback got %v", notified)
	}
}

func TestCatalog_SetLyricsRejectsInvalidTiming(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	lyricRepo := &fakeLyricRepo{}
	c := testCatalog(t, trackRepo, lyricRepo)

	bad := []model.LyricLine{{StartTime: 10, Text: "late"}, {StartTime: 5, Text: "early"}}
	if err := c.SetLyrics(1, bad); err == nil {
		t.Fatal("SetLyrics with invalid timing should fail")
	}
	if lyricRepo.replaced != 0 {
		t.Error("invalid lyrics reached the repository")
	}
}

func TestCatalog_SetLyricsSurfacesRepoError(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	lyricRepo := &fakeLyricRepo{replaceErr: errors.New("db down")}
	c := testCatalog(t, trackRepo, lyricRepo)

	lines := []model.LyricLine{{StartTime: 0, Text: "a"}}
	if err := c.SetLyrics(1, lines); err == nil {
		t.Error("SetLyrics with failing repo should return error")
	}
}

func TestCatalog_AddTrackAppendsAndNotifies(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	c := testCatalog(t, trackRepo, &fakeLyricRepo{})

	var pushed []model.Track
	c.OnUpdate(func(tracks []model.Track) { pushed = tracks })

	id, err := c.AddTrack(context.Background(), &model.Track{Title: "two", Artist: "x", AudioKey: "b.mp3"})
	if err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if id == 0 {
		t.Error("AddTrack returned zero id")
	}
	tracks := c.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("got %d tracks after add, want 2", len(tracks))
	}
	if tracks[1].ID != id || tracks[1].AudioSource != "/static/audio/b.mp3" {
		t.Errorf("appended track = %+v", tracks[1])
	}
	if len(pushed) != 2 {
		t.Errorf("update callback got %d tracks, want 2", len(pushed))
	}
}

func TestCatalog_AddTrackSurfacesRepoError(t *testing.T) {
	trackRepo := &fakeTrackRepo{createErr: errors.New("db down")}
	c := testCatalog(t, trackRepo, &fakeLyricRepo{})

	if _, err := c.AddTrack(context.Background(), &model.Track{Title: "x", AudioKey: "x.mp3"}); err == nil {
		t.Error("AddTrack with failing repo should return error")
	}
}

func TestCatalog_RemoveTrackDeletesLyricsAndNotifies(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{
		{ID: 1, Title: "one", AudioKey: "a.mp3"},
		{ID: 2, Title: "two", AudioKey: "b.mp3"},
	}}
	lyricRepo := &fakeLyricRepo{lines: map[int64][]model.LyricLine{
		1: {{StartTime: 0, Text: "a"}},
	}}
	c := testCatalog(t, trackRepo, lyricRepo)

	var pushed []model.Track
	c.OnUpdate(func(tracks []model.Track) { pushed = tracks })

	if err := c.RemoveTrack(context.Background(), 1); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if _, ok := c.Get(1); ok {
		t.Error("removed track still in catalog")
	}
	if _, ok := lyricRepo.lines[1]; ok {
		t.Error("lyrics of removed track still stored")
	}
	if len(pushed) != 1 || pushed[0].ID != 2 {
		t.Errorf("update callback got %+v, want only track 2", pushed)
	}
}

func TestCatalog_RemoveTrackUnknownID(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	c := testCatalog(t, trackRepo, &fakeLyricRepo{})

	err := c.RemoveTrack(context.Background(), 99)
	if !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("err = %v, want ErrTrackNotFound", err)
	}
}

func TestCatalog_SetDuration(t *testing.T) {
	trackRepo := &fakeTrackRepo{tracks: []*model.Track{{ID: 1, Title: "one", AudioKey: "a.mp3"}}}
	c := testCatalog(t, trackRepo, &fakeLyricRepo{})

	if err := c.SetDuration(1, 245.5); err != nil {
		t.Fatalf("SetDuration: %v", err)
	}
	if got, _ := c.Get(1); got.Duration != 245.5 {
		t.Errorf("catalog Duration = %v, want 245.5", got.Duration)
	}
	if trackRepo.tracks[0].Duration != 245.5 {
		t.Errorf("stored Duration = %v, want 245.5", trackRepo.tracks[0].Duration)
	}

	if err := c.SetDuration(1, -3); err == nil {
		t.Error("negative duration should be rejected")
	}
	if err := c.SetDuration(99, 10); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("err = %v, want ErrTrackNotFound", err)
	}
}
