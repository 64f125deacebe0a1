package lsm_test

import (
	"testing"

	"github.com/olivine-db/lsmtable/internal/lsm"
)

func TestValueCountMax(t *testing.T) {
	tests := []struct {
		name           string
		commitCountMax int
		batchMultiple  int
		want           int
	}{
		{"single commit, no batching", 100, 1, 100},
		{"batched", 100, 4, 400},
		{"commit of one", 1, 8, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lsm.ValueCountMax(tt.commitCountMax, tt.batchMultiple)
			if got != tt.want {
				t.Errorf("ValueCountMax(%d, %d) = %d, want %d", tt.commitCountMax, tt.batchMultiple, got, tt.want)
			}
		})
	}
}

func TestDataBlockCount(t *testing.T) {
	tests := []struct {
		name          string
		valueCountMax int
		layout        lsm.DataLayout
		want          int
	}{
		{"exact fit", 100, lsm.DataLayout{ValueCountMax: 50, DataBlockCountMax: 10}, 2},
		{"rounds up", 101, lsm.DataLayout{ValueCountMax: 50, DataBlockCountMax: 10}, 3},
		{"zero values", 0, lsm.DataLayout{ValueCountMax: 50, DataBlockCountMax: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lsm.DataBlockCount(tt.valueCountMax, tt.layout)
			if got != tt.want {
				t.Errorf("DataBlockCount(%d, %+v) = %d, want %d", tt.valueCountMax, tt.layout, got, tt.want)
			}
		})
	}
}

func TestCheckCapacity(t *testing.T) {
	t.Run("within bound", func(t *testing.T) {
		err := lsm.CheckCapacity(100, lsm.DataLayout{ValueCountMax: 50, DataBlockCountMax: 2})
		if err != nil {
			t.Fatalf("CheckCapacity: %v", err)
		}
	})

	t.Run("exceeds bound", func(t *testing.T) {
		err := lsm.CheckCapacity(101, lsm.DataLayout{ValueCountMax: 50, DataBlockCountMax: 2})
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("zero block size is rejected", func(t *testing.T) {
		err := lsm.CheckCapacity(10, lsm.DataLayout{ValueCountMax: 0, DataBlockCountMax: 2})
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
	})
}
