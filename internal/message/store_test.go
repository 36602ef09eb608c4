package message

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/relaydesk/relaydesk-core/internal/device"
)

func appendN(t *testing.T, s *Store, id string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		rec := Record{From: "+10000000000", Body: fmt.Sprintf("msg %d", i), SIM: 1, Timestamp: int64(i)}
		if err := s.Append(ctx, id, rec); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
}

func TestStore_AppendNewestFirst(t *testing.T) {
	s := NewStore(t.TempDir(), DefaultCap)
	appendN(t, s, "dev-1", 3)

	page, err := s.Slice(context.Background(), "dev-1", 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 {
		t.Fatalf("Total = %d, want 3", page.Total)
	}
	want := []string{"msg 3", "msg 2", "msg 1"}
	for i, rec := range page.Items {
		if rec.Body != want[i] {
			t.Errorf("Items[%d] = %q, want %q", i, rec.Body, want[i])
		}
	}
}

func TestStore_CapDropsOldest(t *testing.T) {
	s := NewStore(t.TempDir(), DefaultCap)
	appendN(t, s, "dev-1", DefaultCap+1)

	ctx := context.Background()
	total, err := s.Count(ctx, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	if total != DefaultCap {
		t.Fatalf("Count() = %d, want %d", total, DefaultCap)
	}

	first, _ := s.Slice(ctx, "dev-1", 0, 1)
	if first.Items[0].Body != fmt.Sprintf("msg %d", DefaultCap+1) {
		t.Errorf("newest = %q", first.Items[0].Body)
	}

	last, _ := s.Slice(ctx, "dev-1", DefaultCap-1, 1)
	if last.Items[0].Body != "msg 2" {
		t.Errorf("oldest kept = %q, want msg 2 (msg 1 dropped)", last.Items[0].Body)
	}
}

func TestStore_SlicePagination(t *testing.T) {
	s := NewStore(t.TempDir(), DefaultCap)
	appendN(t, s, "dev-1", 45)
	ctx := context.Background()

	tests := []struct {
		name      string
		offset    int
		limit     int
		wantLen   int
		wantFirst string
		wantNext  bool
	}{
		{name: "first page", offset: 0, limit: 20, wantLen: 20, wantFirst: "msg 45", wantNext: true},
		{name: "second page", offset: 20, limit: 20, wantLen: 20, wantFirst: "msg 25", wantNext: true},
		{name: "last partial page", offset: 40, limit: 20, wantLen: 5, wantFirst: "msg 5", wantNext: false},
		{name: "past the end", offset: 60, limit: 20, wantLen: 0},
		{name: "negative offset", offset: -5, limit: 20, wantLen: 20, wantFirst: "msg 45", wantNext: true},
		{name: "default limit", offset: 0, limit: 0, wantLen: DefaultPageSize, wantFirst: "msg 45", wantNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.Slice(ctx, "dev-1", tt.offset, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if page.Total != 45 {
				t.Errorf("Total = %d, want 45", page.Total)
			}
			if len(page.Items) != tt.wantLen {
				t.Fatalf("len(Items) = %d, want %d", len(page.Items), tt.wantLen)
			}
			if tt.wantLen > 0 && page.Items[0].Body != tt.wantFirst {
				t.Errorf("Items[0] = %q, want %q", page.Items[0].Body, tt.wantFirst)
			}
			if page.HasNext() != tt.wantNext {
				t.Errorf("HasNext() = %v, want %v", page.HasNext(), tt.wantNext)
			}
		})
	}
}

func TestStore_SliceHugeLimit(t *testing.T) {
	s := NewStore(t.TempDir(), DefaultCap)
	appendN(t, s, "dev-1", 3)

	tests := []struct {
		offset    int
		wantItems int
	}{
		{offset: 0, wantItems: 3},
		{offset: 1, wantItems: 2},
		{offset: 3, wantItems: 0},
		{offset: math.MaxInt, wantItems: 0},
	}
	for _, tt := range tests {
		page, err := s.Slice(context.Background(), "dev-1", tt.offset, math.MaxInt)
		if err != nil {
			t.Fatalf("Slice(%d, MaxInt) error = %v", tt.offset, err)
		}
		if len(page.Items) != tt.wantItems || page.Total != 3 {
			t.Errorf("Slice(%d, MaxInt) = %d items, total %d; want %d items, total 3",
				tt.offset, len(page.Items), page.Total, tt.wantItems)
		}
	}
}

func TestStore_SliceItemsNeverNil(t *testing.T) {
	s := NewStore(t.TempDir(), DefaultCap)

	page, err := s.Slice(context.Background(), "nobody", 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if page.Items == nil || page.Total != 0 {
		t.Errorf("Slice() on empty log = %+v", page)
	}
}

func TestStore_CorruptFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, DefaultCap)
	if err := os.WriteFile(filepath.Join(dir, "dev-1_sms.json"), []byte("[{"), 0o600); err != nil {
		t.Fatal(err)
	}

	page, err := s.Slice(context.Background(), "dev-1", 0, 20)
	if err != nil || page.Total != 0 {
		t.Fatalf("Slice() = (%+v, %v), want empty", page, err)
	}

	appendN(t, s, "dev-1", 1)
	if n, _ := s.Count(context.Background(), "dev-1"); n != 1 {
		t.Errorf("Count() after recovery = %d, want 1", n)
	}
}

func TestStore_InvalidDeviceID(t *testing.T) {
	s := NewStore(t.TempDir(), DefaultCap)
	err := s.Append(context.Background(), "../../etc/passwd", Record{From: "x", Body: "y"})
	if !errors.Is(err, device.ErrInvalidID) {
		t.Errorf("Append() error = %v, want device.ErrInvalidID", err)
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := NewStore(t.TempDir(), DefaultCap)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, "dev-1", Record{From: "+1", Body: fmt.Sprintf("m%d", i)})
		}(i)
	}
	wg.Wait()

	if n, _ := s.Count(ctx, "dev-1"); n != 30 {
		t.Errorf("Count() = %d, want 30", n)
	}
}

func TestStore_SmallCap(t *testing.T) {
	s := NewStore(t.TempDir(), 2)
	appendN(t, s, "dev-1", 5)

	page, _ := s.Slice(context.Background(), "dev-1", 0, 10)
	if page.Total != 2 || page.Items[0].Body != "msg 5" || page.Items[1].Body != "msg 4" {
		t.Errorf("page = %+v", page)
	}
}
