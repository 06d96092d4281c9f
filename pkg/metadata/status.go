package metadata

import (
	"fmt"
	"strings"
)

type ToolStatus string

const (
	ToolInStock ToolStatus = "IN_STOCK"
	ToolIssued  ToolStatus = "ISSUED"
	ToolBroken  ToolStatus = "BROKEN"
	ToolLost    ToolStatus = "LOST"
)

func NewToolStatus(value string) (ToolStatus, error) {
	status := ToolStatus(normalize(value))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid tool status: %s", value)
	}
	return status, nil
}

func (s ToolStatus) IsValid() bool {
	switch s {
	case ToolInStock, ToolIssued, ToolBroken, ToolLost:
		return true
	default:
		return false
	}
}

type KitStatus string

const (
	KitInStock KitStatus = "IN_STOCK"
	KitIssued  KitStatus = "ISSUED"
)

func NewKitStatus(value string) (KitStatus, error) {
	status := KitStatus(normalize(value))
	if status != KitInStock && status != KitIssued {
		return "", fmt.Errorf("invalid kit status: %s", value)
	}
	return status, nil
}

type CarStatus string

const (
	CarParked         CarStatus = "PARKED"
	CarOnRoute        CarStatus = "ON_ROUTE"
	CarMaintenance    CarStatus = "MAINTENANCE"
	CarTechInspection CarStatus = "TECH_INSPECTION"
	CarBroken         CarStatus = "BROKEN"
)

func NewCarStatus(value string) (CarStatus, error) {
	status := CarStatus(normalize(value))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid car status: %s", value)
	}
	return status, nil
}

func (s CarStatus) IsValid() bool {
	switch s {
	case CarParked, CarOnRoute, CarMaintenance, CarTechInspection, CarBroken:
		return true
	default:
		return false
	}
}

func normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
