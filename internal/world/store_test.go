package world

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foodIDs(s *Store) []string {
	var ids []string
	s.EachFood(func(f *Food) bool {
		ids = append(ids, f.ID)
		return true
	})
	return ids
}

func TestStoreKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"f3", "f1", "f2"} {
		s.AddFood(&Food{ID: id})
	}
	assert.Equal(t, []string{"f3", "f1", "f2"}, foodIDs(s))

	require.True(t, s.RemoveFood("f1"))
	assert.False(t, s.RemoveFood("f1"), "second delete must report absence")
	s.AddFood(&Food{ID: "f4"})

	assert.Equal(t, []string{"f3", "f2", "f4"}, foodIDs(s))
	assert.Equal(t, 3, s.FoodCount())

	_, ok := s.Food("f1")
	assert.False(t, ok)
	got, ok := s.Food("f2")
	require.True(t, ok)
	assert.Equal(t, "f2", got.ID)
}

func TestStoreCompactsTombstones(t *testing.T) {
	s := NewStore()
	for i := 0; i < 200; i++ {
		s.AddFood(&Food{ID: fmt.Sprintf("f%d", i)})
	}
	for i := 0; i < 190; i++ {
		s.RemoveFood(fmt.Sprintf("f%d", i))
	}
	s.AddFood(&Food{ID: "tail"})

	assert.Less(t, len(s.foods.order), 200, "tombstones should be compacted on insert")
	assert.Equal(t, []string{"f190", "f191", "f192", "f193", "f194", "f195", "f196", "f197", "f198", "f199", "tail"}, foodIDs(s))

	s.RemoveFood("f195")
	assert.NotContains(t, foodIDs(s), "f195")
	assert.Equal(t, 10, s.FoodCount())
}

func TestStoreIterationToleratesMutation(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.AddFood(&Food{ID: fmt.Sprintf("f%d", i)})
	}

	var visited []string
	s.EachFood(func(f *Food) bool {
		visited = append(visited, f.ID)
		if f.ID == "f1" {
			s.RemoveFood("f2")
			s.AddFood(&Food{ID: "late"})
		}
		return true
	})

	assert.Equal(t, []string{"f0", "f1", "f3", "f4", "late"}, visited)
}

func TestStoreEachStopsEarly(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.AddFood(&Food{ID: fmt.Sprintf("f%d", i)})
	}
	count := 0
	s.EachFood(func(*Food) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestStoreAlivePlayersSkipsDead(t *testing.T) {
	s := NewStore()
	s.AddPlayer(&Player{ID: "u1", Alive: true})
	s.AddPlayer(&Player{ID: "u2", Alive: false})
	s.AddPlayer(&Player{ID: "u3", Alive: true})

	var alive []string
	s.EachAlivePlayer(func(p *Player) bool {
		alive = append(alive, p.ID)
		return true
	})
	assert.Equal(t, []string{"u1", "u3"}, alive)
	assert.Equal(t, 3, s.PlayerCount())
}
