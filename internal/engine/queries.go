package engine

import "fmt"

// Query is one named report query.
type Query struct {
	Name  string
	Title string
	SQL   string
}

// Salary level thresholds used by the classification report.
const (
	HighSalary   = 65000
	MediumSalary = 55000
)

// ReportQueries returns the report battery over table, in execution order.
// Orderings break ties on id (or city) so results are deterministic.
// ROUND is SQLite's, which rounds halves away from zero.
func ReportQueries(table string) []Query {
	t := quoteIdent(table)
	return []Query{
		{
			Name:  "all_data",
			Title: "ALL DATA",
			SQL:   fmt.Sprintf("SELECT * FROM %s", t),
		},
		{
			Name:  "filtered",
			Title: "EMPLOYEES WITH AGE > 28 AND SALARY > 55000",
			SQL: fmt.Sprintf(`SELECT * FROM %s
WHERE age > 28 AND salary > 55000
ORDER BY salary DESC, id ASC`, t),
		},
		{
			Name:  "by_city",
			Title: "STATISTICS BY CITY",
			SQL: fmt.Sprintf(`SELECT
    city,
    COUNT(*) AS total_people,
    ROUND(AVG(age), 1) AS avg_age,
    ROUND(AVG(salary), 0) AS avg_salary,
    MIN(salary) AS min_salary,
    MAX(salary) AS max_salary
FROM %s
GROUP BY city
ORDER BY total_people DESC, city ASC`, t),
		},
		{
			Name:  "top_salaries",
			Title: "TOP 5 HIGHEST SALARIES",
			SQL: fmt.Sprintf(`SELECT name, age, city, salary
FROM %s
ORDER BY salary DESC, id ASC
LIMIT 5`, t),
		},
		{
			Name:  "summary",
			Title: "OVERALL STATISTICS",
			SQL: fmt.Sprintf(`SELECT
    COUNT(*) AS total_records,
    COUNT(DISTINCT city) AS total_cities,
    MIN(age) AS youngest,
    MAX(age) AS oldest,
    ROUND(AVG(age), 1) AS avg_age,
    MIN(salary) AS min_salary,
    MAX(salary) AS max_salary,
    ROUND(AVG(salary), 0) AS avg_salary
FROM %s`, t),
		},
		{
			Name:  "salary_levels",
			Title: "SALARY LEVEL CLASSIFICATION",
			SQL: fmt.Sprintf(`SELECT *,
    CASE
        WHEN salary >= %d THEN 'High'
        WHEN salary >= %d THEN 'Medium'
        ELSE 'Low'
    END AS salary_level
FROM %s
ORDER BY salary DESC, id ASC`, HighSalary, MediumSalary, t),
		},
	}
}
