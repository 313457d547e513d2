package models

// PautaRow is one student line of a class grade sheet.
type PautaRow struct {
	StudentID      string   `db:"student_id" json:"student_id"`
	StudentName    string   `db:"student_name" json:"student_name"`
	StudentNumber  string   `db:"student_number" json:"student_number"`
	Value          *float64 `db:"value" json:"value,omitempty"`
	Classification *string  `db:"classification" json:"classification,omitempty"`
	Passed         *bool    `db:"passed" json:"passed,omitempty"`
	Breakdown      *string  `db:"breakdown" json:"breakdown,omitempty"`
}

// ClassPauta aggregates final grades for a class+discipline+period.
type ClassPauta struct {
	ClassID      string     `json:"class_id"`
	DisciplineID string     `json:"discipline_id"`
	Period       string     `json:"period"`
	Rows         []PautaRow `json:"rows"`
}

// ReportCardSubject summarises one discipline on a student report card.
type ReportCardSubject struct {
	DisciplineID   string   `db:"discipline_id" json:"discipline_id"`
	DisciplineName string   `db:"discipline_name" json:"discipline_name"`
	Value          *float64 `db:"value" json:"value,omitempty"`
	Classification *string  `db:"classification" json:"classification,omitempty"`
}

// StudentReportCard contains per-discipline final grades for a student.
type StudentReportCard struct {
	StudentID string              `json:"student_id"`
	Period    string              `json:"period"`
	Subjects  []ReportCardSubject `json:"subjects"`
}
