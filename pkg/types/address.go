package types

import (
	"fmt"
	"strings"
)

// ShippingAddress is the delivery address snapshotted onto an order. It is
// stored inline on the orders table with a shipping_ column prefix.
type ShippingAddress struct {
	Name   string `json:"name" gorm:"column:name;not null"`
	Phone  string `json:"phone" gorm:"column:phone;not null"`
	Street string `json:"street" gorm:"column:street;not null"`
	City   string `json:"city" gorm:"column:city;not null"`
	State  string `json:"state" gorm:"column:state;not null"`
	Zip    string `json:"zip" gorm:"column:zip;not null"`
}

// Normalize trims surrounding whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Name:   strings.TrimSpace(a.Name),
		Phone:  strings.TrimSpace(a.Phone),
		Street: strings.TrimSpace(a.Street),
		City:   strings.TrimSpace(a.City),
		State:  strings.TrimSpace(a.State),
		Zip:    strings.TrimSpace(a.Zip),
	}
}

// Validate ensures every field is present.
func (a ShippingAddress) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"phone", a.Phone},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("shipping address: missing %s", f.name)
		}
	}
	return nil
}

// Lines renders the address the way it appears on a shipping label.
func (a ShippingAddress) Lines() []string {
	return []string{
		a.Name,
		a.Street,
		fmt.Sprintf("%s, %s %s", a.City, a.State, a.Zip),
		"Phone: " + a.Phone,
	}
}
