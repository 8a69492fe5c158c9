package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func grade(t *testing.T, l *ledger, enrollmentID string, marks float64) {
	t.Helper()
	_, err := l.results.Record(context.Background(), models.RecordResultRequest{EnrollmentID: enrollmentID, Marks: floatPtr(marks)})
	require.NoError(t, err)
}

func admit(t *testing.T, l *ledger, studentID, courseID string) *models.Enrollment {
	t.Helper()
	e, err := l.enrollments.Admit(context.Background(), models.AdmitRequest{StudentID: studentID, CourseID: courseID})
	require.NoError(t, err)
	return e
}

func TestReportAveragesDefaultToZero(t *testing.T) {
	l := newLedger()
	s := l.store.addStudent("S-001", "Ada", "Lovelace", "Math")
	c := l.store.addCourse("MATH101", 3, nil)
	ctx := context.Background()

	gpa, err := l.reports.AverageGPA(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, gpa)

	avg, err := l.reports.AverageMarks(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	e := admit(t, l, s.ID, c.ID)
	_, err = l.results.Record(ctx, models.RecordResultRequest{EnrollmentID: e.ID})
	require.NoError(t, err)
	gpa, err = l.reports.AverageGPA(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, gpa, "ungraded results do not count")
}

func TestReportAverageGPAIsMeanOfPoints(t *testing.T) {
	l := newLedger()
	s := l.store.addStudent("S-001", "Ada", "Lovelace", "Math")
	c1 := l.store.addCourse("MATH101", 3, nil)
	c2 := l.store.addCourse("MATH102", 4, nil)
	grade(t, l, admit(t, l, s.ID, c1.ID).ID, 95)
	grade(t, l, admit(t, l, s.ID, c2.ID).ID, 62)

	gpa, err := l.reports.AverageGPA(context.Background(), s.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, gpa, 1e-9)
}

func TestReportAverageMarksPerCourse(t *testing.T) {
	l := newLedger()
	c := l.store.addCourse("CS101", 3, nil)
	for i, marks := range []float64{70, 80, 93.5} {
		s := l.store.addStudent(string(rune('A'+i)), string(rune('a'+i)), "X", "CS")
		grade(t, l, admit(t, l, s.ID, c.ID).ID, marks)
	}

	avg, err := l.reports.AverageMarks(context.Background(), c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 81.1666666, avg, 1e-6)
}

func TestReportResultsInRangeOrderedByMarksDesc(t *testing.T) {
	l := newLedger()
	c := l.store.addCourse("CS101", 3, nil)
	for i, marks := range []float64{55, 91, 72, 40, 72.5} {
		s := l.store.addStudent(string(rune('A'+i)), string(rune('a'+i)), "X", "CS")
		grade(t, l, admit(t, l, s.ID, c.ID).ID, marks)
	}

	items, err := l.reports.ResultsInRange(context.Background(), models.MarksRange{Min: 55, Max: 91})
	require.NoError(t, err)
	var marks []float64
	for _, item := range items {
		marks = append(marks, *item.Marks)
	}
	assert.Equal(t, []float64{91, 72.5, 72, 55}, marks)

	items, err = l.reports.ResultsInRange(context.Background(), models.MarksRange{Min: 95, Max: 100})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReportResultsInRangeRejectsBadBounds(t *testing.T) {
	l := newLedger()
	ctx := context.Background()

	for _, rng := range []models.MarksRange{{Min: 80, Max: 20}, {Min: -1, Max: 50}, {Min: 0, Max: 101}} {
		_, err := l.reports.ResultsInRange(ctx, rng)
		assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err), "%+v", rng)
	}
}

func TestReportTranscriptEarnedCredits(t *testing.T) {
	l := newLedger()
	ctx := context.Background()
	fixed := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	l.reports.now = func() time.Time { return fixed }

	s := l.store.addStudent("S-001", "Ada", "Lovelace", "Math")
	passed := l.store.addCourse("MATH101", 3, nil)
	failed := l.store.addCourse("MATH102", 4, nil)
	ongoing := l.store.addCourse("MATH103", 2, nil)

	e1 := admit(t, l, s.ID, passed.ID)
	e2 := admit(t, l, s.ID, failed.ID)
	e3 := admit(t, l, s.ID, ongoing.ID)
	grade(t, l, e1.ID, 88)
	grade(t, l, e2.ID, 30)
	grade(t, l, e3.ID, 99)
	for _, id := range []string{e1.ID, e2.ID} {
		_, err := l.enrollments.ChangeStatus(ctx, id, models.EnrollmentStatusCompleted)
		require.NoError(t, err)
	}

	transcript, err := l.reports.Transcript(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "S-001", transcript.Student.StudentNumber)
	assert.Len(t, transcript.Results, 3)
	assert.Equal(t, 3, transcript.EarnedCredits)
	assert.InDelta(t, (3.7+0+4.0)/3, transcript.AverageGPA, 1e-9)
	assert.Equal(t, fixed, transcript.GeneratedAt)

	_, err = l.reports.Transcript(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestReportCourseSummaryDistribution(t *testing.T) {
	l := newLedger()
	c := l.store.addCourse("CS101", 3, intPtr(10))
	for i, marks := range []float64{91, 95, 81, 20} {
		s := l.store.addStudent(string(rune('A'+i)), string(rune('a'+i)), "X", "CS")
		grade(t, l, admit(t, l, s.ID, c.ID).ID, marks)
	}
	s := l.store.addStudent("Z", "z", "X", "CS")
	admit(t, l, s.ID, c.ID)

	summary, err := l.reports.CourseSummary(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.CurrentEnrollment)
	require.NotNil(t, summary.RemainingSeats)
	assert.Equal(t, 5, *summary.RemainingSeats)
	assert.Equal(t, 4, summary.GradedResults)
	assert.InDelta(t, 71.75, summary.AverageMarks, 1e-9)
	assert.InDelta(t, (4.0+4.0+3.3+0.0)/4, summary.AverageGPA, 1e-9)

	require.Len(t, summary.GradeDistribution, 10)
	assert.Equal(t, models.GradeCount{Grade: "A+", Count: 2}, summary.GradeDistribution[0])
	assert.Equal(t, models.GradeCount{Grade: "A", Count: 0}, summary.GradeDistribution[1])
	assert.Equal(t, models.GradeCount{Grade: "A-", Count: 1}, summary.GradeDistribution[2])
	assert.Equal(t, models.GradeCount{Grade: "F", Count: 1}, summary.GradeDistribution[9])
}

func TestReportCourseSummaryWithoutResults(t *testing.T) {
	l := newLedger()
	c := l.store.addCourse("CS102", 3, nil)
	s := l.store.addStudent("S-001", "Ada", "Lovelace", "CS")
	admit(t, l, s.ID, c.ID)

	summary, err := l.reports.CourseSummary(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.GradedResults)
	assert.Zero(t, summary.AverageGPA)
	assert.Zero(t, summary.AverageMarks)
	assert.Nil(t, summary.RemainingSeats)
}

func TestReportCourseRosterJoinsResults(t *testing.T) {
	l := newLedger()
	c := l.store.addCourse("CS101", 3, nil)
	graded := l.store.addStudent("S-001", "Ada", "Lovelace", "CS")
	pending := l.store.addStudent("S-002", "Alan", "Turing", "CS")
	grade(t, l, admit(t, l, graded.ID, c.ID).ID, 77)
	admit(t, l, pending.ID, c.ID)

	roster, err := l.reports.CourseRoster(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, roster.Entries, 2)
	byNumber := map[string]string{}
	for _, entry := range roster.Entries {
		if entry.Grade != nil {
			byNumber[entry.StudentNumber] = *entry.Grade
		} else {
			byNumber[entry.StudentNumber] = ""
		}
	}
	assert.Equal(t, map[string]string{"S-001": "B+", "S-002": ""}, byNumber)

	_, err = l.reports.CourseRoster(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}
