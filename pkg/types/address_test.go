package types

import "testing"

func TestShippingAddressValidate(t *testing.T) {
	addr := ShippingAddress{
		Name:   " Asha Rao ",
		Phone:  "9876543210",
		Street: "12 Market Road",
		City:   "Pune",
		State:  "MH",
		Zip:    "411001",
	}.Normalize()

	if addr.Name != "Asha Rao" {
		t.Fatalf("expected trimmed name, got %q", addr.Name)
	}
	if err := addr.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	addr.Zip = "  "
	if err := addr.Validate(); err == nil {
		t.Fatal("expected missing zip error")
	}
}

func TestShippingAddressLines(t *testing.T) {
	addr := ShippingAddress{Name: "A", Phone: "1", Street: "S", City: "C", State: "ST", Zip: "Z"}
	lines := addr.Lines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[2] != "C, ST Z" {
		t.Fatalf("unexpected city line %q", lines[2])
	}
	if lines[3] != "Phone: 1" {
		t.Fatalf("unexpected phone line %q", lines[3])
	}
}
