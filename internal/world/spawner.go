package world

import "time"

// BotNames are the planet and moon names bots are drawn from.
var BotNames = []string{
	"Марс", "Земля", "Юпитер", "Венера", "Сатурн", "Нептун", "Меркурий", "Уран",
	"Плутон", "Европа", "Ио", "Титан", "Ганимед", "Каллисто", "Тритон",
}

// EnsureFoodPopulation tops pellets up to the configured target and reports
// how many it created.
func (w *World) EnsureFoodPopulation() int {
	cfg := w.config
	created := 0
	for w.store.FoodCount() < cfg.FoodTarget {
		w.store.AddFood(&Food{
			ID:    w.nextEntityID("f"),
			Pos:   RandomInset(w.rng, cfg, cfg.FoodMargin),
			Kind:  FoodPellet,
			Value: cfg.PelletValue,
		})
		created++
	}
	return created
}

// EnsurePowerupPopulation tops power-ups up to the configured target.
func (w *World) EnsurePowerupPopulation() int {
	cfg := w.config
	created := 0
	for w.store.PowerCount() < cfg.PowerTarget {
		w.store.AddPower(&PowerUp{
			ID:   w.nextEntityID("p"),
			Pos:  RandomInset(w.rng, cfg, cfg.PowerMargin),
			Kind: RandomChoice(w.rng, PowerKinds),
		})
		created++
	}
	return created
}

// SpawnMeat drops a meat item at origin.
func (w *World) SpawnMeat(origin Vec2, value int) *Food {
	if value <= 0 {
		value = w.config.MeatValue
	}
	food := &Food{
		ID:    w.nextEntityID("f"),
		Pos:   w.config.WrapPoint(origin),
		Kind:  FoodMeat,
		Value: value,
	}
	w.store.AddFood(food)
	return food
}

// EnsureBotPopulation removes dead bots and spawns fresh ones until the
// configured number of bots is alive.
func (w *World) EnsureBotPopulation(now time.Time) int {
	alive := 0
	var dead []string
	w.store.EachPlayer(func(p *Player) bool {
		if !p.IsBot {
			return true
		}
		if p.Alive {
			alive++
		} else {
			dead = append(dead, p.ID)
		}
		return true
	})
	for _, id := range dead {
		w.store.RemovePlayer(id)
	}

	created := 0
	for alive < w.config.BotCount {
		w.SpawnPlayer(SpawnOptions{Name: RandomChoice(w.rng, BotNames), IsBot: true}, now)
		alive++
		created++
	}
	return created
}
