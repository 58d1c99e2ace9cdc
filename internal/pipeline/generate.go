package pipeline

import "go-lake-pipeline/internal/model"

// SeedRecords returns the fixed employee records every run starts from.
func SeedRecords() []model.Record {
	return []model.Record{
		{ID: 1, Name: "Alice", Age: 25, City: "Hanoi", Salary: 50000},
		{ID: 2, Name: "Bob", Age: 30, City: "HCMC", Salary: 60000},
		{ID: 3, Name: "Charlie", Age: 35, City: "Danang", Salary: 70000},
		{ID: 4, Name: "David", Age: 28, City: "Hanoi", Salary: 55000},
		{ID: 5, Name: "Eve", Age: 32, City: "HCMC", Salary: 58000},
	}
}

// GenerateDataset materializes the seed records as a table.
func GenerateDataset() *model.Table {
	return model.RecordsTable(SeedRecords())
}
