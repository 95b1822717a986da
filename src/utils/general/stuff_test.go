package general

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCurrentFilepath(t *testing.T) {
	path := GetCurrentFilepath()
	if path == "" {
		t.Error("Expected non-empty filepath")
	}
	if !filepath.IsAbs(path) {
		t.Error("Expected absolute path")
	}
}

func TestGetCurrentDir(t *testing.T) {
	dir := GetCurrentDir()
	if dir == "" {
		t.Error("Expected non-empty directory")
	}
	if !filepath.IsAbs(dir) {
		t.Error("Expected absolute path")
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    bool
		wantMsg string
	}{
		{"Valid HTTP URL", "http://example.com", true, ""},
		{"Valid HTTPS URL", "https://query1.finance.yahoo.com", true, ""},
		{"Empty URL", "", false, "URL is empty"},
		{"Missing Scheme", "example.com", false, "URL scheme is missing"},
		{"Invalid URL", "http://", false, "URL host is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotMsg := IsValidURL(tt.url)
			if got != tt.want {
				t.Errorf("IsValidURL() got = %v, want %v", got, tt.want)
			}
			if gotMsg != tt.wantMsg {
				t.Errorf("IsValidURL() gotMsg = %v, want %v", gotMsg, tt.wantMsg)
			}
		})
	}
}

func TestCopyFileToBucket(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test")
	}

	path := filepath.Join(t.TempDir(), "equity.png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	err := CopyFileToBucket(context.Background(), path, "test-bucket", "test-object")
	if err != nil {
		t.Errorf("CopyFileToBucket() error = %v", err)
	}
}

func TestItemInSlice(t *testing.T) {
	slice := []string{"Conservative", "Momentum", "NoiseTrader"}

	assert.True(t, ItemInSlice(slice, "Momentum"))
	assert.False(t, ItemInSlice(slice, "Adversarial"))
	assert.False(t, ItemInSlice([]string{}, "Momentum"))
}

func TestNoDuplicateItemsInSlice(t *testing.T) {
	assert.True(t, NoDuplicateItemsInSlice([]string{"a", "b"}))
	assert.False(t, NoDuplicateItemsInSlice([]string{"a", "b", "a"}))
	assert.True(t, NoDuplicateItemsInSlice([]string{}))
}

func TestGenerateUUID5IsDeterministic(t *testing.T) {
	a := GenerateUUID5StringFromByteArray([]byte("AAPL|5d|5m"))
	b := GenerateUUID5StringFromByteArray([]byte("AAPL|5d|5m"))
	c := GenerateUUID5StringFromByteArray([]byte("MSFT|5d|5m"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 100000.0, RoundCents(100000))
	assert.Equal(t, 1234.57, RoundCents(1234.5678))
	assert.Equal(t, 0.13, RoundCents(0.125))
	assert.Equal(t, -2.35, RoundCents(-2.345))
}

func TestAffordableQuantity(t *testing.T) {
	assert.Equal(t, 200, AffordableQuantity(10000, 50))
	assert.Equal(t, 3, AffordableQuantity(100, 30))
	assert.Equal(t, 0, AffordableQuantity(10, 30))
	assert.Equal(t, 0, AffordableQuantity(100, 0))
	assert.Equal(t, 0, AffordableQuantity(-5, 10))
}

func TestBoundedBuffer(t *testing.T) {
	bb := NewBoundedBuffer[int](3)
	_, ok := bb.GetLatestElement()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		bb.AddElement(i)
	}
	assert.Equal(t, []int{3, 4, 5}, bb.GetAllElements())
	assert.True(t, bb.GetIsFull())
	latest, ok := bb.GetLatestElement()
	assert.True(t, ok)
	assert.Equal(t, 5, latest)

	elements := bb.GetAllElements()
	elements[0] = 99
	assert.Equal(t, []int{3, 4, 5}, bb.GetAllElements())

	bb.Reset()
	assert.Equal(t, 0, bb.GetSize())
}
