package inventorytest

import (
	"context"
	"slices"
	"sort"

	custom_error "github.com/novozhilovsergeydisk/tool-system/pkg/errors"
	"github.com/novozhilovsergeydisk/tool-system/pkg/metadata"
	"github.com/novozhilovsergeydisk/tool-system/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

// Tools

func (s *MemStore) GetTool(_ context.Context, _ *goqu.TxDatabase, id int) (*models.ToolInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tool, ok := s.state.tools[id]
	if !ok {
		return nil, notFound("tool", id)
	}
	tool.Nomenclature = s.refreshNomenclature(tool.Nomenclature)
	return &tool, nil
}

func (s *MemStore) GetToolByInventoryID(_ context.Context, _ *goqu.TxDatabase, inventoryID string) (*models.ToolInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tool := range s.state.tools {
		if tool.InventoryID == inventoryID {
			tool.Nomenclature = s.refreshNomenclature(tool.Nomenclature)
			return &tool, nil
		}
	}
	return nil, custom_error.NotFound("tool with inventory number %s not found", inventoryID)
}

func (s *MemStore) refreshNomenclature(n models.Nomenclature) models.Nomenclature {
	if current, ok := s.state.nomenclatures[n.ID]; ok {
		return current
	}
	return n
}

func (s *MemStore) InsertTool(_ context.Context, _ *goqu.TxDatabase, tool *models.ToolInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkPlacement(tool.Location); err != nil {
		return err
	}
	for _, existing := range s.state.tools {
		if existing.InventoryID == tool.InventoryID {
			return custom_error.WrapDBError("Tool with this inventory number already registered", "23505")
		}
	}
	tool.ID = s.nextID()
	tool.Version = 1
	tool.CreatedAt = s.Now()
	s.state.tools[tool.ID] = *tool
	return nil
}

func (s *MemStore) UpdateTool(_ context.Context, _ *goqu.TxDatabase, tool *models.ToolInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkPlacement(tool.Location); err != nil {
		return err
	}
	current, ok := s.state.tools[tool.ID]
	if !ok || current.Version != tool.Version {
		return conflict("tool", tool.ID)
	}
	for id, existing := range s.state.tools {
		if id != tool.ID && existing.InventoryID == tool.InventoryID {
			return custom_error.WrapDBError("Tool with this inventory number already registered", "23505")
		}
	}
	tool.Version++
	s.state.tools[tool.ID] = *tool
	return nil
}

func (s *MemStore) DeleteTool(_ context.Context, _ *goqu.TxDatabase, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.tools[id]; !ok {
		return notFound("tool", id)
	}
	delete(s.state.tools, id)
	for i := range s.state.logs {
		if s.state.logs[i].ToolID != nil && *s.state.logs[i].ToolID == id {
			s.state.logs[i].ToolID = nil
		}
	}
	return nil
}

func (s *MemStore) ListTools(_ context.Context, _ *goqu.TxDatabase, filter models.ToolFilter) ([]models.ToolInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.ToolInstance
	for _, tool := range s.state.tools {
		tool.Nomenclature = s.refreshNomenclature(tool.Nomenclature)
		if matchTool(tool, filter) {
			result = append(result, tool)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func matchTool(tool models.ToolInstance, f models.ToolFilter) bool {
	switch {
	case f.IDs != nil && !slices.Contains(f.IDs, tool.ID):
		return false
	case f.WarehouseIDs != nil && (tool.Location.WarehouseID() == nil || !slices.Contains(f.WarehouseIDs, tool.Location.ID)):
		return false
	case f.HolderID != nil && !sameInt(tool.Location.HolderID(), f.HolderID):
		return false
	case f.CarID != nil && !sameInt(tool.Location.VehicleID(), f.CarID):
		return false
	case f.KitID != nil && !sameInt(tool.KitID, f.KitID):
		return false
	case f.NomenclatureID != nil && tool.Nomenclature.ID != *f.NomenclatureID:
		return false
	case f.Status != nil && tool.Status != *f.Status:
		return false
	case f.Condition != nil && tool.Condition != *f.Condition:
		return false
	case f.FreeOnly && tool.KitID != nil:
		return false
	case f.Search != "" && !containsFold(tool.Nomenclature.Name, f.Search) &&
		!containsFold(tool.Nomenclature.Article, f.Search) && !containsFold(tool.InventoryID, f.Search):
		return false
	}
	return true
}

func checkPlacement(loc models.Location) error {
	switch loc.Kind {
	case models.LocationWarehouse, models.LocationHolder, models.LocationVehicle:
		return nil
	default:
		return custom_error.Invariant("location %s cannot be stored on a stock row", loc)
	}
}

// Consumable balances

func (s *MemStore) GetBalance(_ context.Context, _ *goqu.TxDatabase, id int) (*models.ConsumableBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.state.balances[id]
	if !ok {
		return nil, custom_error.NotFound("consumable balance %d not found", id)
	}
	balance.Nomenclature = s.refreshNomenclature(balance.Nomenclature)
	return &balance, nil
}

func (s *MemStore) FindBalance(_ context.Context, _ *goqu.TxDatabase, nomenclatureID int, loc models.Location, kitID *int) (*models.ConsumableBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkPlacement(loc); err != nil {
		return nil, err
	}
	for _, balance := range s.state.balances {
		if balance.Nomenclature.ID == nomenclatureID && balance.Location == loc && sameInt(balance.KitID, kitID) {
			balance.Nomenclature = s.refreshNomenclature(balance.Nomenclature)
			return &balance, nil
		}
	}
	return nil, nil
}

func (s *MemStore) checkBalanceKey(balance *models.ConsumableBalance) error {
	if err := checkPlacement(balance.Location); err != nil {
		return err
	}
	if balance.Quantity <= 0 {
		return custom_error.Invariant("quantity must be positive")
	}
	for id, existing := range s.state.balances {
		if id != balance.ID && existing.Nomenclature.ID == balance.Nomenclature.ID &&
			existing.Location == balance.Location && sameInt(existing.KitID, balance.KitID) {
			return custom_error.WrapDBError("Balance already exists at this location", "23505")
		}
	}
	return nil
}

func (s *MemStore) InsertBalance(_ context.Context, _ *goqu.TxDatabase, balance *models.ConsumableBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance.ID = 0
	if err := s.checkBalanceKey(balance); err != nil {
		return err
	}
	balance.ID = s.nextID()
	balance.Version = 1
	s.state.balances[balance.ID] = *balance
	return nil
}

func (s *MemStore) UpdateBalance(_ context.Context, _ *goqu.TxDatabase, balance *models.ConsumableBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.state.balances[balance.ID]
	if !ok || current.Version != balance.Version {
		return conflict("consumable balance", balance.ID)
	}
	if err := s.checkBalanceKey(balance); err != nil {
		return err
	}
	balance.Version++
	s.state.balances[balance.ID] = *balance
	return nil
}

func (s *MemStore) DeleteBalance(_ context.Context, _ *goqu.TxDatabase, balance *models.ConsumableBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.state.balances[balance.ID]
	if !ok || current.Version != balance.Version {
		return conflict("consumable balance", balance.ID)
	}
	delete(s.state.balances, balance.ID)
	return nil
}

func (s *MemStore) ListBalances(_ context.Context, _ *goqu.TxDatabase, filter models.BalanceFilter) ([]models.ConsumableBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.ConsumableBalance
	for _, b := range s.state.balances {
		b.Nomenclature = s.refreshNomenclature(b.Nomenclature)
		switch {
		case filter.IDs != nil && !slices.Contains(filter.IDs, b.ID):
			continue
		case filter.WarehouseIDs != nil && (b.Location.WarehouseID() == nil || !slices.Contains(filter.WarehouseIDs, b.Location.ID)):
			continue
		case filter.HolderID != nil && !sameInt(b.Location.HolderID(), filter.HolderID):
			continue
		case filter.CarID != nil && !sameInt(b.Location.VehicleID(), filter.CarID):
			continue
		case filter.KitID != nil && !sameInt(b.KitID, filter.KitID):
			continue
		case filter.NomenclatureID != nil && b.Nomenclature.ID != *filter.NomenclatureID:
			continue
		case filter.FreeOnly && b.KitID != nil:
			continue
		case filter.Search != "" && !containsFold(b.Nomenclature.Name, filter.Search) && !containsFold(b.Nomenclature.Article, filter.Search):
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Kits

func (s *MemStore) GetKit(_ context.Context, _ *goqu.TxDatabase, id int) (*models.ToolKit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kit, ok := s.state.kits[id]
	if !ok {
		return nil, notFound("kit", id)
	}
	kit.CoWorkerIDs = slices.Clone(kit.CoWorkerIDs)
	return &kit, nil
}

func (s *MemStore) InsertKit(_ context.Context, _ *goqu.TxDatabase, kit *models.ToolKit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.kits {
		if existing.Name == kit.Name {
			return custom_error.WrapDBError("Kit with this name already exists", "23505")
		}
	}
	kit.ID = s.nextID()
	kit.Version = 1
	stored := *kit
	stored.CoWorkerIDs = slices.Clone(kit.CoWorkerIDs)
	s.state.kits[kit.ID] = stored
	return nil
}

func (s *MemStore) UpdateKit(_ context.Context, _ *goqu.TxDatabase, kit *models.ToolKit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.state.kits[kit.ID]
	if !ok || current.Version != kit.Version {
		return conflict("kit", kit.ID)
	}
	if (kit.Status == metadata.KitIssued) != (kit.HolderID != nil) {
		return custom_error.WrapDBError("kit status and holder disagree", "23514")
	}
	for id, existing := range s.state.kits {
		if id != kit.ID && existing.Name == kit.Name {
			return custom_error.WrapDBError("Kit with this name already exists", "23505")
		}
	}
	kit.Version++
	stored := *kit
	stored.CoWorkerIDs = slices.Clone(kit.CoWorkerIDs)
	s.state.kits[kit.ID] = stored
	return nil
}

func (s *MemStore) DeleteKit(_ context.Context, _ *goqu.TxDatabase, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.kits[id]; !ok {
		return notFound("kit", id)
	}
	for _, tool := range s.state.tools {
		if sameInt(tool.KitID, &id) {
			return custom_error.WrapDBError("kit still has tools", "23503")
		}
	}
	for _, balance := range s.state.balances {
		if sameInt(balance.KitID, &id) {
			return custom_error.WrapDBError("kit still has consumables", "23503")
		}
	}
	delete(s.state.kits, id)
	return nil
}

func (s *MemStore) ListKits(_ context.Context, filter models.KitFilter) ([]models.ToolKit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.ToolKit
	for _, kit := range s.state.kits {
		switch {
		case filter.WarehouseIDs != nil && !slices.Contains(filter.WarehouseIDs, kit.WarehouseID):
			continue
		case filter.Status != nil && kit.Status != *filter.Status:
			continue
		case filter.HolderID != nil && !sameInt(kit.HolderID, filter.HolderID):
			continue
		}
		kit.CoWorkerIDs = slices.Clone(kit.CoWorkerIDs)
		result = append(result, kit)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Cars

func (s *MemStore) GetCar(_ context.Context, _ *goqu.TxDatabase, id int) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	car, ok := s.state.cars[id]
	if !ok {
		return nil, notFound("car", id)
	}
	return &car, nil
}

func (s *MemStore) InsertCar(_ context.Context, _ *goqu.TxDatabase, car *models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.cars {
		if existing.LicensePlate == car.LicensePlate {
			return custom_error.WrapDBError("Car with this license plate already exists", "23505")
		}
	}
	car.ID = s.nextID()
	car.Version = 1
	s.state.cars[car.ID] = *car
	return nil
}

func (s *MemStore) UpdateCar(_ context.Context, _ *goqu.TxDatabase, car *models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.state.cars[car.ID]
	if !ok || current.Version != car.Version {
		return conflict("car", car.ID)
	}
	car.Version++
	s.state.cars[car.ID] = *car
	return nil
}

func (s *MemStore) DeleteCar(_ context.Context, _ *goqu.TxDatabase, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.cars[id]; !ok {
		return notFound("car", id)
	}
	for _, tool := range s.state.tools {
		if sameInt(tool.Location.VehicleID(), &id) {
			return custom_error.WrapDBError("car still carries tools", "23503")
		}
	}
	delete(s.state.cars, id)
	return nil
}

func (s *MemStore) ListCars(_ context.Context, filter models.CarFilter) ([]models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.Car
	for _, car := range s.state.cars {
		if filter.Status != nil && car.Status != *filter.Status {
			continue
		}
		if filter.DriverID != nil && !sameInt(car.DriverID, filter.DriverID) {
			continue
		}
		result = append(result, car)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Users, warehouses and catalog lookups

func (s *MemStore) GetUser(_ context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.state.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &user, nil
}

func (s *MemStore) GetWarehouse(_ context.Context, id int) (*models.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.state.warehouses[id]
	if !ok {
		return nil, notFound("warehouse", id)
	}
	return &w, nil
}

func (s *MemStore) GetNomenclature(_ context.Context, id int) (*models.Nomenclature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.state.nomenclatures[id]
	if !ok {
		return nil, notFound("nomenclature", id)
	}
	return &n, nil
}

// Ledger

func (s *MemStore) Append(_ context.Context, _ *goqu.TxDatabase, entry *models.MovementLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID()
	entry.CreatedAt = s.Now()
	s.state.logs = append(s.state.logs, *entry)
	return nil
}

func (s *MemStore) LastToolAction(_ context.Context, _ *goqu.TxDatabase, toolID int) (metadata.ActionType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.state.logs) - 1; i >= 0; i-- {
		if sameInt(s.state.logs[i].ToolID, &toolID) {
			return s.state.logs[i].ActionType, nil
		}
	}
	return "", nil
}

func (s *MemStore) IssuedSinceKitIssue(_ context.Context, _ *goqu.TxDatabase, toolID, kitID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.state.logs) - 1; i >= 0; i-- {
		entry := s.state.logs[i]
		switch {
		case entry.ActionType == metadata.ActionKitIssue && sameInt(entry.KitID, &kitID):
			return false, nil
		case entry.ActionType == metadata.ActionIssue && sameInt(entry.ToolID, &toolID):
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) Find(_ context.Context, filter models.HistoryFilter) ([]models.MovementLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offset := filter.Normalize()

	var matched []models.MovementLog
	for i := len(s.state.logs) - 1; i >= 0; i-- {
		entry := s.state.logs[i]
		if matchEntry(entry, filter) {
			matched = append(matched, entry)
		}
	}

	total := len(matched)
	if offset >= total {
		return []models.MovementLog{}, total, nil
	}
	end := min(offset+filter.PageSize, total)
	return matched[offset:end], total, nil
}

func matchEntry(entry models.MovementLog, f models.HistoryFilter) bool {
	switch {
	case f.From != nil && entry.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && !entry.CreatedAt.Before(*f.To):
		return false
	case f.CarID != nil && !sameInt(entry.CarID, f.CarID):
		return false
	case f.ToolID != nil && !sameInt(entry.ToolID, f.ToolID):
		return false
	case f.UserID != nil && !sameInt(entry.InitiatorID, f.UserID) &&
		!sameInt(entry.SourceUserID, f.UserID) && !sameInt(entry.TargetUserID, f.UserID):
		return false
	case len(f.IncludeActions) > 0 && !slices.Contains(f.IncludeActions, entry.ActionType):
		return false
	case len(f.ExcludeActions) > 0 && slices.Contains(f.ExcludeActions, entry.ActionType):
		return false
	}
	if f.Search == "" {
		return true
	}
	for _, field := range []string{entry.NomenclatureName, entry.NomenclatureArticle, entry.SerialNumber, entry.KitName, entry.CarName, entry.Comment} {
		if containsFold(field, f.Search) {
			return true
		}
	}
	return false
}
