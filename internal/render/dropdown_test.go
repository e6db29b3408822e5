package render

import (
	"errors"
	"testing"

	"github.com/hitoshi/dropwatch/internal/listing"
)

func TestDropdown_Initial(t *testing.T) {
	d := NewDropdown()

	if d.IsOpen() || d.State() != DropdownClosed {
		t.Error("dropdown should start closed")
	}
	if d.Selected() != listing.SortPercentage {
		t.Errorf("Selected() = %q, want percentage", d.Selected())
	}
	if d.Label() != "Biggest Drop %" {
		t.Errorf("Label() = %q, want %q", d.Label(), "Biggest Drop %")
	}
}

func TestDropdown_ToggleAndClose(t *testing.T) {
	d := NewDropdown()

	d.Toggle()
	if !d.IsOpen() {
		t.Fatal("Toggle from closed should open")
	}
	d.Toggle()
	if d.IsOpen() {
		t.Fatal("Toggle from open should close")
	}

	d.Toggle()
	d.Close()
	if d.IsOpen() {
		t.Error("Close should force closed")
	}
	d.Close()
	if d.IsOpen() {
		t.Error("Close on closed dropdown stays closed")
	}
}

// TestDropdown_Select は選択で値とラベルが更新され、閉じることを検証する。
func TestDropdown_Select(t *testing.T) {
	tests := []struct {
		value     string
		wantKey   listing.SortKey
		wantLabel string
	}{
		{"percentage", listing.SortPercentage, "Biggest Drop %"},
		{"savings", listing.SortSavings, "Biggest Savings"},
		{"site", listing.SortSite, "Site Name"},
		{"", listing.SortPercentage, "Biggest Drop %"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := NewDropdown()
			d.Toggle()

			if err := d.Select(tt.value); err != nil {
				t.Fatalf("Select(%q) returned error: %v", tt.value, err)
			}
			if d.IsOpen() {
				t.Error("Select should close the dropdown")
			}
			if d.Selected() != tt.wantKey {
				t.Errorf("Selected() = %q, want %q", d.Selected(), tt.wantKey)
			}
			if d.Label() != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", d.Label(), tt.wantLabel)
			}

			selected := 0
			for _, opt := range d.Options() {
				if opt.Selected {
					selected++
					if opt.Value != tt.wantKey {
						t.Errorf("highlighted option = %q, want %q", opt.Value, tt.wantKey)
					}
				}
			}
			if selected != 1 {
				t.Errorf("highlighted options = %d, want 1", selected)
			}
		})
	}
}

func TestDropdown_SelectUnknownLeavesStateUnchanged(t *testing.T) {
	d := NewDropdown()
	if err := d.Select("site"); err != nil {
		t.Fatal(err)
	}
	d.Toggle()

	err := d.Select("price")
	if !errors.Is(err, listing.ErrUnknownSortKey) {
		t.Fatalf("err = %v, want ErrUnknownSortKey", err)
	}
	if !d.IsOpen() {
		t.Error("rejected selection must not close the dropdown")
	}
	if d.Selected() != listing.SortSite {
		t.Errorf("Selected() = %q, want site", d.Selected())
	}
}

func TestDropdown_OptionsOrder(t *testing.T) {
	opts := NewDropdown().Options()
	want := []string{"Biggest Drop %", "Biggest Savings", "Site Name"}
	if len(opts) != len(want) {
		t.Fatalf("options = %d, want %d", len(opts), len(want))
	}
	for i, opt := range opts {
		if opt.Label != want[i] {
			t.Errorf("option[%d] = %q, want %q", i, opt.Label, want[i])
		}
	}
}
