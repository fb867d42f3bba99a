package world

// table keeps entities in insertion order with O(1) insert, lookup and
// delete. Deletes leave a tombstone in the order slice; tombstones are
// compacted away on insert once they outnumber live entries, but never while
// the table is being iterated.
type table[T any] struct {
	order     []string
	position  map[string]int
	items     map[string]*T
	iterating int
}

func newTable[T any]() table[T] {
	return table[T]{
		position: make(map[string]int),
		items:    make(map[string]*T),
	}
}

func (t *table[T]) insert(id string, item *T) {
	if id == "" || item == nil {
		return
	}
	if _, exists := t.items[id]; exists {
		t.items[id] = item
		return
	}
	t.maybeCompact()
	t.position[id] = len(t.order)
	t.order = append(t.order, id)
	t.items[id] = item
}

func (t *table[T]) get(id string) (*T, bool) {
	item, ok := t.items[id]
	return item, ok
}

func (t *table[T]) remove(id string) bool {
	pos, ok := t.position[id]
	if !ok {
		return false
	}
	t.order[pos] = ""
	delete(t.position, id)
	delete(t.items, id)
	return true
}

func (t *table[T]) len() int {
	return len(t.items)
}

// each visits live entries in insertion order until fn returns false.
// Entries inserted during the walk are visited; removed ones are skipped.
func (t *table[T]) each(fn func(*T) bool) {
	t.iterating++
	defer func() { t.iterating-- }()
	for i := 0; i < len(t.order); i++ {
		id := t.order[i]
		if id == "" {
			continue
		}
		item, ok := t.items[id]
		if !ok {
			continue
		}
		if !fn(item) {
			return
		}
	}
}

func (t *table[T]) maybeCompact() {
	if t.iterating > 0 {
		return
	}
	dead := len(t.order) - len(t.items)
	if dead < 32 || dead <= len(t.items) {
		return
	}
	compacted := make([]string, 0, len(t.items)+1)
	for _, id := range t.order {
		if id == "" {
			continue
		}
		t.position[id] = len(compacted)
		compacted = append(compacted, id)
	}
	t.order = compacted
}

// Store owns every entity in the arena. It is not safe for concurrent use;
// the tick owner serializes all access.
type Store struct {
	players table[Player]
	foods   table[Food]
	powers  table[PowerUp]
}

func NewStore() *Store {
	return &Store{
		players: newTable[Player](),
		foods:   newTable[Food](),
		powers:  newTable[PowerUp](),
	}
}

func (s *Store) AddPlayer(p *Player) {
	if p != nil {
		s.players.insert(p.ID, p)
	}
}

func (s *Store) Player(id string) (*Player, bool) {
	return s.players.get(id)
}

func (s *Store) RemovePlayer(id string) bool {
	return s.players.remove(id)
}

func (s *Store) PlayerCount() int {
	return s.players.len()
}

// EachPlayer walks players, dead ones included, in insertion order.
func (s *Store) EachPlayer(fn func(*Player) bool) {
	s.players.each(fn)
}

func (s *Store) EachAlivePlayer(fn func(*Player) bool) {
	s.players.each(func(p *Player) bool {
		if !p.Alive {
			return true
		}
		return fn(p)
	})
}

func (s *Store) AddFood(f *Food) {
	if f != nil {
		s.foods.insert(f.ID, f)
	}
}

func (s *Store) Food(id string) (*Food, bool) {
	return s.foods.get(id)
}

func (s *Store) RemoveFood(id string) bool {
	return s.foods.remove(id)
}

func (s *Store) FoodCount() int {
	return s.foods.len()
}

func (s *Store) EachFood(fn func(*Food) bool) {
	s.foods.each(fn)
}

func (s *Store) Power(id string) (*PowerUp, bool) {
	return s.powers.get(id)
}

func (s *Store) RemovePower(id string) bool {
	return s.powers.remove(id)
}

func (s *Store) PowerCount() int {
	return s.powers.len()
}

func (s *Store) EachPower(fn func(*PowerUp) bool) {
	s.powers.each(fn)
}

func (s *Store) AddPower(p *PowerUp) {
	if p != nil {
		s.powers.insert(p.ID, p)
	}
}
