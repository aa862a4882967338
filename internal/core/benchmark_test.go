package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/daoninhthai/crm/internal/kv"
)

// ============================================================================
// Parsing Benchmarks
// ============================================================================

// BenchmarkParseDate benchmarks date parsing across the accepted layouts.
// Called once per import row that carries last_contact_date.
func BenchmarkParseDate(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"2024/01/15",
		"01/15/2024",
		"Jan 15, 2024",
		"not a date",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDate(tc)
		}
	}
}

// BenchmarkCleanCell benchmarks header cell cleaning.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"email",
		"\ufefffirst_name",
		`="last_name"`,
		"  company  ",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// BenchmarkValidateHeaders benchmarks the header check run before every import.
func BenchmarkValidateHeaders(b *testing.B) {
	headers := []string{"First_Name", "Last_Name", "Email", "Phone", "Company", "City", "Country", "Notes"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ValidateHeaders(headers, RequiredImportColumns)
	}
}

// ============================================================================
// Import Benchmarks
// ============================================================================

func importFixture(rows int) string {
	var sb strings.Builder
	sb.WriteString("first_name,last_name,email,company,city\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "First%d,Last%d,user%d@example.com,\"Acme, Inc\",Berlin\n", i, i, i)
	}
	return sb.String()
}

// BenchmarkImportCustomers benchmarks a full import into the memory store.
func BenchmarkImportCustomers(b *testing.B) {
	for _, rows := range []int{100, 1000} {
		data := importFixture(rows)
		b.Run(fmt.Sprintf("rows=%d", rows), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				svc := NewService(NewMemoryStore(), kv.NewMemory(), &recordingSender{}, testConfig())
				b.StartTimer()

				if _, err := svc.ImportCustomers(context.Background(), strings.NewReader(data)); err != nil {
					b.Fatalf("ImportCustomers() error = %v", err)
				}
			}
		})
	}
}

// BenchmarkPreviewImport benchmarks mapping rows without storing them.
func BenchmarkPreviewImport(b *testing.B) {
	data := importFixture(200)
	svc := NewService(NewMemoryStore(), kv.NewMemory(), &recordingSender{}, testConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.PreviewImport(strings.NewReader(data), 100); err != nil {
			b.Fatalf("PreviewImport() error = %v", err)
		}
	}
}

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

func pipelineFixture(n int) []Deal {
	deals := make([]Deal, n)
	for i := range deals {
		stage := Stages[i%len(Stages)]
		deals[i] = Deal{
			Stage:       stage,
			Probability: StageProbability[stage],
			Value:       decimal.NewNullDecimal(decimal.NewFromInt(int64(1000 + i))),
		}
	}
	return deals
}

// BenchmarkSummarizePipeline benchmarks the pipeline overview aggregation.
func BenchmarkSummarizePipeline(b *testing.B) {
	deals := pipelineFixture(5000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SummarizePipeline(deals)
	}
}

// BenchmarkWeightedValueParallel benchmarks concurrent weighted value reads.
func BenchmarkWeightedValueParallel(b *testing.B) {
	deals := pipelineFixture(1000)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			WeightedValue(deals)
		}
	})
}

// BenchmarkApplyTransition measures allocations of a single stage move.
func BenchmarkApplyTransition(b *testing.B) {
	deal := Deal{Stage: StageNegotiation, Probability: 80}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ApplyTransition(deal, StageWon, testNow); err != nil {
			b.Fatalf("ApplyTransition() error = %v", err)
		}
	}
}
