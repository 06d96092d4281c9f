// Package inventorytest provides an in-memory implementation of the inventory
// repositories for service tests. A failed InTransaction call restores the state it
// started from, mirroring a database rollback.
package inventorytest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type state struct {
	tools         map[int]models.ToolInstance
	balances      map[int]models.ConsumableBalance
	kits          map[int]models.ToolKit
	cars          map[int]models.Car
	users         map[int]models.User
	warehouses    map[int]models.Warehouse
	nomenclatures map[int]models.Nomenclature
	logs          []models.MovementLog
	seq           int
}

func (s state) clone() state {
	c := state{
		tools:         make(map[int]models.ToolInstance, len(s.tools)),
		balances:      make(map[int]models.ConsumableBalance, len(s.balances)),
		kits:          make(map[int]models.ToolKit, len(s.kits)),
		cars:          make(map[int]models.Car, len(s.cars)),
		users:         make(map[int]models.User, len(s.users)),
		warehouses:    make(map[int]models.Warehouse, len(s.warehouses)),
		nomenclatures: make(map[int]models.Nomenclature, len(s.nomenclatures)),
		logs:          slices.Clone(s.logs),
		seq:           s.seq,
	}
	for k, v := range s.tools {
		c.tools[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.kits {
		v.CoWorkerIDs = slices.Clone(v.CoWorkerIDs)
		c.kits[k] = v
	}
	for k, v := range s.cars {
		c.cars[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range s.nomenclatures {
		c.nomenclatures[k] = v
	}
	return c
}

type MemStore struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state state
	// Now stamps appended ledger rows.
	Now func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		state: state{}.clone(),
		Now:   time.Now,
	}
}

func (s *MemStore) nextID() int {
	s.state.seq++
	return s.state.seq
}

// InTransaction serializes callers and rolls the store back when fn fails.
func (s *MemStore) InTransaction(ctx context.Context, fn func(tx *goqu.TxDatabase) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Seeding helpers.

func (s *MemStore) AddWarehouse(name string) models.Warehouse {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := models.Warehouse{ID: s.nextID(), Name: name}
	s.state.warehouses[w.ID] = w
	return w
}

func (s *MemStore) AddUser(user models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.nextID()
	}
	s.state.users[user.ID] = user
	return user
}

func (s *MemStore) AddNomenclature(n models.Nomenclature) models.Nomenclature {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID()
	s.state.nomenclatures[n.ID] = n
	return n
}

func (s *MemStore) AddTool(tool models.ToolInstance) models.ToolInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	tool.ID = s.nextID()
	tool.Version = 1
	s.state.tools[tool.ID] = tool
	return tool
}

func (s *MemStore) AddBalance(balance models.ConsumableBalance) models.ConsumableBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance.ID = s.nextID()
	balance.Version = 1
	s.state.balances[balance.ID] = balance
	return balance
}

func (s *MemStore) AddKit(kit models.ToolKit) models.ToolKit {
	s.mu.Lock()
	defer s.mu.Unlock()
	kit.ID = s.nextID()
	kit.Version = 1
	if kit.Status == "" {
		kit.Status = metadata.KitInStock
	}
	s.state.kits[kit.ID] = kit
	return kit
}

func (s *MemStore) AddCar(car models.Car) models.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	car.ID = s.nextID()
	car.Version = 1
	if car.Status == "" {
		car.Status = metadata.CarParked
	}
	s.state.cars[car.ID] = car
	return car
}

// Inspection helpers.

func (s *MemStore) Tool(id int) (models.ToolInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.tools[id]
	return t, ok
}

func (s *MemStore) Kit(id int) (models.ToolKit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.state.kits[id]
	return k, ok
}

func (s *MemStore) Car(id int) (models.Car, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.cars[id]
	return c, ok
}

// Balances returns every balance ordered by id.
func (s *MemStore) Balances() []models.ConsumableBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.ConsumableBalance, 0, len(s.state.balances))
	for _, b := range s.state.balances {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// BalanceAt returns the quantity of a nomenclature at a placement with a kit binding.
func (s *MemStore) BalanceAt(nomenclatureID int, loc models.Location, kitID *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.state.balances {
		if b.Nomenclature.ID == nomenclatureID && b.Location == loc && sameInt(b.KitID, kitID) {
			return b.Quantity
		}
	}
	return 0
}

// TotalQuantity sums a nomenclature over every location.
func (s *MemStore) TotalQuantity(nomenclatureID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, b := range s.state.balances {
		if b.Nomenclature.ID == nomenclatureID {
			total += b.Quantity
		}
	}
	return total
}

func (s *MemStore) Logs() []models.MovementLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.logs)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func containsFold(value, search string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(search))
}

func notFound(entity string, id int) error {
	return custom_error.NotFound("%s %d not found", entity, id)
}

func conflict(entity string, id int) error {
	return custom_error.Conflict("%s %d was modified by another operation, reload and retry", entity, id)
}
