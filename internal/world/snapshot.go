package world

import (
	"sort"
	"time"
)

// PlayerView is the bandwidth-bounded rendering of a worm. Seg is omitted
// for the joining player's own summary.
type PlayerView struct {
	ID       string  `json:"id" msgpack:"id"`
	Name     string  `json:"name" msgpack:"name"`
	Color    string  `json:"color" msgpack:"color"`
	Score    int     `json:"score" msgpack:"score"`
	Alive    bool    `json:"alive" msgpack:"alive"`
	Radius   float64 `json:"r" msgpack:"r"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Dir      float64 `json:"dir" msgpack:"dir"`
	Segments []Vec2  `json:"seg,omitempty" msgpack:"seg,omitempty"`
}

type FoodView struct {
	ID    string   `json:"id" msgpack:"id"`
	X     float64  `json:"x" msgpack:"x"`
	Y     float64  `json:"y" msgpack:"y"`
	Kind  FoodKind `json:"kind" msgpack:"kind"`
	Value int      `json:"val" msgpack:"val"`
}

type PowerView struct {
	ID   string    `json:"id" msgpack:"id"`
	X    float64   `json:"x" msgpack:"x"`
	Y    float64   `json:"y" msgpack:"y"`
	Kind PowerKind `json:"kind" msgpack:"kind"`
}

type LeaderboardEntry struct {
	ID    string `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Score int    `json:"score" msgpack:"score"`
}

type Bounds struct {
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

// Snapshot is the per-tick view pushed to every session.
type Snapshot struct {
	Time        int64              `json:"time" msgpack:"time"`
	Players     []PlayerView       `json:"players" msgpack:"players"`
	Foods       []FoodView         `json:"foods" msgpack:"foods"`
	Powers      []PowerView        `json:"powers" msgpack:"powers"`
	Leaderboard []LeaderboardEntry `json:"lb" msgpack:"lb"`
}

// InitView is the full state handed to a session on join or respawn.
type InitView struct {
	ID     string       `json:"id" msgpack:"id"`
	World  Bounds       `json:"world" msgpack:"world"`
	You    PlayerView   `json:"you" msgpack:"you"`
	Foods  []FoodView   `json:"foods" msgpack:"foods"`
	Powers []PowerView  `json:"powers" msgpack:"powers"`
	Others []PlayerView `json:"others" msgpack:"others"`
}

// Snapshot builds the bounded broadcast view. Food is capped to the first
// items by insertion order.
func (w *World) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Time:        now.UnixMilli(),
		Players:     w.playerViews(),
		Foods:       w.foodViews(w.config.SnapshotFoodCap),
		Powers:      w.powerViews(),
		Leaderboard: w.Leaderboard(w.config.LeaderboardSize),
	}
}

// InitView builds the join payload for playerID. Food is not capped.
func (w *World) InitView(playerID string) (InitView, bool) {
	player, ok := w.store.Player(playerID)
	if !ok {
		return InitView{}, false
	}
	width, height := Dimensions(w.config)
	return InitView{
		ID:     player.ID,
		World:  Bounds{W: width, H: height},
		You:    summaryView(player),
		Foods:  w.foodViews(-1),
		Powers: w.powerViews(),
		Others: w.playerViews(),
	}, true
}

func summaryView(p *Player) PlayerView {
	return PlayerView{
		ID:     p.ID,
		Name:   p.Name,
		Color:  p.Color,
		Score:  p.Score,
		Alive:  p.Alive,
		Radius: p.Radius,
		X:      p.X,
		Y:      p.Y,
		Dir:    p.Dir,
	}
}

func (w *World) playerViews() []PlayerView {
	views := make([]PlayerView, 0, w.store.PlayerCount())
	w.store.EachPlayer(func(p *Player) bool {
		view := summaryView(p)
		view.Segments = w.config.downsample(p.Segments)
		views = append(views, view)
		return true
	})
	return views
}

// downsample keeps every stride-th segment starting at the head, capped.
func (cfg Config) downsample(segments []Vec2) []Vec2 {
	stride := cfg.SnapshotSegmentStride
	if stride < 1 {
		stride = 1
	}
	limit := (len(segments) + stride - 1) / stride
	if cfg.SnapshotSegmentCap > 0 && limit > cfg.SnapshotSegmentCap {
		limit = cfg.SnapshotSegmentCap
	}
	out := make([]Vec2, 0, limit)
	for i := 0; i < len(segments) && len(out) < limit; i += stride {
		out = append(out, segments[i])
	}
	return out
}

// foodViews returns up to limit food items; a negative limit returns all.
func (w *World) foodViews(limit int) []FoodView {
	size := w.store.FoodCount()
	if limit >= 0 && limit < size {
		size = limit
	}
	views := make([]FoodView, 0, size)
	if size == 0 {
		return views
	}
	w.store.EachFood(func(f *Food) bool {
		views = append(views, FoodView{ID: f.ID, X: f.Pos.X, Y: f.Pos.Y, Kind: f.Kind, Value: f.Value})
		return len(views) < size
	})
	return views
}

func (w *World) powerViews() []PowerView {
	views := make([]PowerView, 0, w.store.PowerCount())
	w.store.EachPower(func(p *PowerUp) bool {
		views = append(views, PowerView{ID: p.ID, X: p.Pos.X, Y: p.Pos.Y, Kind: p.Kind})
		return true
	})
	return views
}

// Leaderboard ranks live worms by score. Equal scores keep insertion order.
func (w *World) Leaderboard(size int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, w.store.PlayerCount())
	w.store.EachAlivePlayer(func(p *Player) bool {
		entries = append(entries, LeaderboardEntry{ID: p.ID, Name: p.Name, Score: p.Score})
		return true
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if size >= 0 && len(entries) > size {
		entries = entries[:size]
	}
	return entries
}

// Counts summarizes the store for diagnostics.
type Counts struct {
	Players int `json:"players"`
	Humans  int `json:"humans"`
	Bots    int `json:"bots"`
	Alive   int `json:"alive"`
	Food    int `json:"food"`
	Powers  int `json:"powers"`
}

func (w *World) Counts() Counts {
	counts := Counts{
		Players: w.store.PlayerCount(),
		Food:    w.store.FoodCount(),
		Powers:  w.store.PowerCount(),
	}
	w.store.EachPlayer(func(p *Player) bool {
		if p.IsBot {
			counts.Bots++
		} else {
			counts.Humans++
		}
		if p.Alive {
			counts.Alive++
		}
		return true
	})
	return counts
}
