package adminkit

import (
	"context"
	"fmt"
	"testing"
)

// skipBenchmarkIfNoDatabase skips the benchmark if database is not available
func skipBenchmarkIfNoDatabase(b *testing.B) (*Store, context.Context) {
	if !isDatabaseAvailable() {
		b.Skip("Database not available, skipping benchmark")
		return nil, nil
	}
	store, _ := setupTestStore(b)
	return store, context.Background()
}

// ============================================================================
// Permission Checking Benchmarks
// ============================================================================

// BenchmarkResolverCan benchmarks the Can method
func BenchmarkResolverCan(b *testing.B) {
	resolver := hrResolver()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = resolver.Can("hr_manager", "", "employee", ActionDelete)
	}
}

// BenchmarkConcurrentCan benchmarks concurrent permission checks
func BenchmarkConcurrentCan(b *testing.B) {
	resolver := hrResolver()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = resolver.Can("employee", "", "employee", ActionEdit)
		}
	})
}

// BenchmarkGates benchmarks deriving the controls of a screen
func BenchmarkGates(b *testing.B) {
	checker := hrResolver().For("employee")
	desc := employeeDescriptor()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = checker.Gates(desc)
	}
}

// ============================================================================
// Query String Benchmarks
// ============================================================================

// BenchmarkQueryEncode benchmarks encoding a list query
func BenchmarkQueryEncode(b *testing.B) {
	codec := NewQueryCodec(employeeDescriptor().Filters)
	q := NewQueryState(25).
		WithPage(3).
		WithSort(SortField{Field: "name", Direction: SortAscending}, SortField{Field: "hiredAt", Direction: SortDescending}).
		WithFilter("department", "ops").
		WithFilter("active", true)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Encode(q); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkQueryDecode benchmarks decoding a list query
func BenchmarkQueryDecode(b *testing.B) {
	codec := NewQueryCodec(employeeDescriptor().Filters)
	raw := "filter%5Bactive%5D=true&filter%5Bdepartment%5D=ops&page=3&pageSize=25&sort=name%2C-hiredAt"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode(raw); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Selection and Cache Benchmarks
// ============================================================================

// BenchmarkConcurrentSelections benchmarks opening and resetting many keys at once
func BenchmarkConcurrentSelections(b *testing.B) {
	store := NewSelectionStore()
	keys := make([]string, 16)
	for i := range keys {
		keys[i] = fmt.Sprintf("entity-%d", i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := keys[i%len(keys)]
			rec, _ := store.OpenEdit(key, map[string]any{"id": i}, "")
			store.ResetIf(key, rec.Generation)
			i++
		}
	})
}

// BenchmarkInvalidatePrefix benchmarks dropping one entity from a full cache
func BenchmarkInvalidatePrefix(b *testing.B) {
	cache := NewQueryCache(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for p := 0; p < 50; p++ {
			cache.Set(ListKey("employee", fmt.Sprintf("page=%d", p)), ListResult{})
			cache.Set(ListKey("skill", fmt.Sprintf("page=%d", p)), ListResult{})
		}
		b.StartTimer()
		cache.InvalidatePrefix("employee")
	}
}

// ============================================================================
// Health and Pool Benchmarks
// ============================================================================

// BenchmarkPing benchmarks the Ping method
func BenchmarkPing(b *testing.B) {
	store, ctx := skipBenchmarkIfNoDatabase(b)
	if store == nil {
		return
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Ping(ctx); err != nil {
			b.Errorf("Ping failed: %v", err)
		}
	}
}

// BenchmarkSaveTableConfig benchmarks upserting table preferences
func BenchmarkSaveTableConfig(b *testing.B) {
	store, ctx := skipBenchmarkIfNoDatabase(b)
	if store == nil {
		return
	}
	key := uniqueKey("bench")
	cfg := employeeDescriptor().DefaultTableConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg.MultiSort = i%2 == 0
		if err := store.Save(ctx, key, cfg); err != nil {
			b.Fatalf("Save failed: %v", err)
		}
	}
}
