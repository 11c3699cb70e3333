package request

import (
	"testing"
)

func TestParsePaging(t *testing.T) {
	t.Run("default values when no parameters provided", func(t *testing.T) {
		paging, err := ParsePaging("", "")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if paging.Limit != 100 {
			t.Errorf("Expected default Limit 100, got %d", paging.Limit)
		}

		if paging.Offset != 0 {
			t.Errorf("Expected default Offset 0, got %d", paging.Offset)
		}
	})

	t.Run("custom limit and offset", func(t *testing.T) {
		paging, err := ParsePaging("25", "50")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if paging.Limit != 25 {
			t.Errorf("Expected Limit 25, got %d", paging.Limit)
		}

		if paging.Offset != 50 {
			t.Errorf("Expected Offset 50, got %d", paging.Offset)
		}
	})

	t.Run("limit too low returns error", func(t *testing.T) {
		_, err := ParsePaging("0", "")
		if err == nil {
			t.Error("Expected error for limit < 1, got nil")
		}
	})

	t.Run("limit too high returns error", func(t *testing.T) {
		_, err := ParsePaging("501", "")
		if err == nil {
			t.Error("Expected error for limit > 500, got nil")
		}
	})

	t.Run("invalid limit returns error", func(t *testing.T) {
		_, err := ParsePaging("not-a-number", "")
		if err == nil {
			t.Error("Expected error for non-numeric limit, got nil")
		}
	})

	t.Run("negative offset returns error", func(t *testing.T) {
		_, err := ParsePaging("", "-1")
		if err == nil {
			t.Error("Expected error for negative offset, got nil")
		}
	})

	t.Run("invalid offset returns error", func(t *testing.T) {
		_, err := ParsePaging("", "later")
		if err == nil {
			t.Error("Expected error for non-numeric offset, got nil")
		}
	})
}

func TestParseRunLimit(t *testing.T) {
	t.Run("defaults to 20", func(t *testing.T) {
		limit, err := ParseRunLimit("")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if limit != 20 {
			t.Errorf("Expected default limit 20, got %d", limit)
		}
	})

	t.Run("custom limit", func(t *testing.T) {
		limit, err := ParseRunLimit("5")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if limit != 5 {
			t.Errorf("Expected limit 5, got %d", limit)
		}
	})

	t.Run("out of range returns error", func(t *testing.T) {
		for _, param := range []string{"0", "101", "-3"} {
			if _, err := ParseRunLimit(param); err == nil {
				t.Errorf("Expected error for limit %q, got nil", param)
			}
		}
	})

	t.Run("non-numeric returns error", func(t *testing.T) {
		if _, err := ParseRunLimit("many"); err == nil {
			t.Error("Expected error for non-numeric limit, got nil")
		}
	})
}
