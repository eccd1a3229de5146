package repository

// Requirement aggregates shared by the admin flag lists and cohort fan-outs,
// so a cohort message reaches exactly the students the dashboard flags.
const (
	ectsTotalExpr   = `COALESCE(SUM(c.ects), 0)`
	ectsEnglishExpr = `COALESCE(SUM(CASE WHEN LOWER(c.language) = 'english' THEN c.ects ELSE 0 END), 0)`
	ectsGermanExpr  = `COALESCE(SUM(CASE WHEN LOWER(c.language) = 'german' THEN c.ects ELSE 0 END), 0)`
	gpaExpr         = `SUM(c.ects * e.grade) / NULLIF(SUM(c.ects), 0)`
)

// ectsBelowMinimumFrom includes students without enrollments via the outer joins.
func ectsBelowMinimumFrom(param string) string {
	return `FROM students s
        LEFT JOIN enrollments e ON s.id = e.student_id
        LEFT JOIN courses c ON e.course_id = c.id
        GROUP BY s.id, s.first_name, s.last_name
        HAVING ` + ectsTotalExpr + ` < ` + param
}

// languageRequirementFrom only considers students with at least one enrollment.
func languageRequirementFrom(param string) string {
	return `FROM students s
        JOIN enrollments e ON s.id = e.student_id
        JOIN courses c ON e.course_id = c.id
        GROUP BY s.id, s.first_name, s.last_name
        HAVING ` + ectsEnglishExpr + ` < ` + param + `
        OR ` + ectsGermanExpr + ` < ` + param
}

func gpaBelowThresholdFrom(param string) string {
	return `FROM students s
        JOIN enrollments e ON s.id = e.student_id
        JOIN courses c ON e.course_id = c.id
        WHERE e.grade IS NOT NULL
        GROUP BY s.id, s.first_name, s.last_name
        HAVING (` + gpaExpr + `) < ` + param
}
