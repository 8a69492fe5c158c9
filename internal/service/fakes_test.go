package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// memStore is a mutex-guarded stand-in for the database. Admit and Update
// hold the mutex across the seat count and the write, mirroring the
// SELECT ... FOR UPDATE on the course row in EnrollmentRepository. The SQL
// lock-then-count order is asserted in the repository sqlmock tests.
type memStore struct {
	mu          sync.Mutex
	seq         int
	students    map[string]models.Student
	courses     map[string]models.Course
	enrollments map[string]models.Enrollment
	results     map[string]models.Result
	failWith    error
}

func newMemStore() *memStore {
	return &memStore{
		students:    map[string]models.Student{},
		courses:     map[string]models.Course{},
		enrollments: map[string]models.Enrollment{},
		results:     map[string]models.Result{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addStudent(number, first, last, department string) models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.Student{
		ID:             m.nextID("student"),
		StudentNumber:  number,
		FirstName:      first,
		LastName:       last,
		Email:          strings.ToLower(first) + "@uni.test",
		Department:     department,
		EnrollmentYear: 2024,
	}
	m.students[s.ID] = s
	return s
}

func (m *memStore) addCourse(code string, credits int, capacity *int) models.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Course{
		ID:            m.nextID("course"),
		Code:          code,
		Title:         code + " title",
		Department:    "Science",
		Credits:       credits,
		MaxEnrollment: capacity,
	}
	m.courses[c.ID] = c
	return c
}

func (m *memStore) countEnrolledLocked(courseID string) int {
	n := 0
	for _, e := range m.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			n++
		}
	}
	return n
}

func (m *memStore) enrollmentDetailLocked(e models.Enrollment) models.EnrollmentDetail {
	s := m.students[e.StudentID]
	c := m.courses[e.CourseID]
	return models.EnrollmentDetail{
		Enrollment:    e,
		StudentNumber: s.StudentNumber,
		StudentName:   s.FullName(),
		CourseCode:    c.Code,
		CourseTitle:   c.Title,
		Credits:       c.Credits,
	}
}

func (m *memStore) resultDetailLocked(r models.Result) models.ResultDetail {
	e := m.enrollments[r.EnrollmentID]
	d := m.enrollmentDetailLocked(e)
	return models.ResultDetail{
		Result:        r,
		StudentID:     e.StudentID,
		StudentNumber: d.StudentNumber,
		StudentName:   d.StudentName,
		CourseID:      e.CourseID,
		CourseCode:    d.CourseCode,
		CourseTitle:   d.CourseTitle,
		Credits:       d.Credits,
		Status:        e.Status,
	}
}

func (m *memStore) courseDetailLocked(c models.Course) models.CourseDetail {
	return models.CourseDetail{Course: c, CurrentEnrollment: m.countEnrolledLocked(c.ID)}
}

// memStudents implements studentRepository.
type memStudents struct{ *memStore }

func (r memStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, 0, r.failWith
	}
	var out []models.Student
	for _, s := range r.students {
		if filter.Department != "" && s.Department != filter.Department {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentNumber < out[j].StudentNumber })
	return out, len(out), nil
}

func (r memStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r memStudents) FindByStudentNumber(ctx context.Context, number string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.StudentNumber == number {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memStudents) ExistsByStudentNumber(ctx context.Context, number, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.StudentNumber == number && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memStudents) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if strings.EqualFold(s.Email, email) && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memStudents) Create(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student.ID = r.nextID("student")
	student.CreatedAt = time.Now().UTC()
	student.UpdatedAt = student.CreatedAt
	r.students[student.ID] = *student
	return nil
}

func (r memStudents) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	r.students[student.ID] = *student
	return nil
}

func (r memStudents) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	return nil
}

func (r memStudents) HasEnrollments(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.StudentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r memStudents) Departments(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, s := range r.students {
		if !seen[s.Department] {
			seen[s.Department] = true
			out = append(out, s.Department)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r memStudents) EnrollmentYears(ctx context.Context) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[int]bool{}
	var out []int
	for _, s := range r.students {
		if !seen[s.EnrollmentYear] {
			seen[s.EnrollmentYear] = true
			out = append(out, s.EnrollmentYear)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out, nil
}

// memCourses implements courseRepository.
type memCourses struct{ *memStore }

func (r memCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CourseDetail
	for _, c := range r.courses {
		if filter.Department != "" && c.Department != filter.Department {
			continue
		}
		out = append(out, r.courseDetailLocked(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, len(out), nil
}

func (r memCourses) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := r.courseDetailLocked(c)
	return &d, nil
}

func (r memCourses) FindByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.courses {
		if c.Code == code {
			d := r.courseDetailLocked(c)
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memCourses) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.courses {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memCourses) Create(ctx context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	course.ID = r.nextID("course")
	r.courses[course.ID] = *course
	return nil
}

func (r memCourses) Update(ctx context.Context, course *models.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	if course.MaxEnrollment != nil && r.countEnrolledLocked(course.ID) > *course.MaxEnrollment {
		return repository.ErrCapacityReached
	}
	r.courses[course.ID] = *course
	return nil
}

func (r memCourses) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.courses, id)
	return nil
}

func (r memCourses) HasEnrollments(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.CourseID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r memCourses) Departments(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, c := range r.courses {
		if !seen[c.Department] {
			seen[c.Department] = true
			out = append(out, c.Department)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r memCourses) ListAvailableFor(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := map[string]bool{}
	for _, e := range r.enrollments {
		if e.StudentID == studentID {
			taken[e.CourseID] = true
		}
	}
	var out []models.CourseDetail
	for _, c := range r.courses {
		if !taken[c.ID] {
			out = append(out, r.courseDetailLocked(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r memCourses) ListEnrolledFor(ctx context.Context, studentID string) ([]models.CourseDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CourseDetail
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.Status == models.EnrollmentStatusEnrolled {
			out = append(out, r.courseDetailLocked(r.courses[e.CourseID]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// memEnrollments implements enrollmentRepository.
type memEnrollments struct{ *memStore }

func (r memEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range r.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, r.enrollmentDetailLocked(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r memEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (r memEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := r.enrollmentDetailLocked(e)
	return &d, nil
}

func (r memEnrollments) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			found := e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memEnrollments) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	_, err := r.FindByStudentAndCourse(ctx, studentID, courseID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r memEnrollments) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	items, _, err := r.List(ctx, models.EnrollmentFilter{StudentID: studentID})
	return items, err
}

func (r memEnrollments) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	items, _, err := r.List(ctx, models.EnrollmentFilter{CourseID: courseID})
	return items, err
}

func (r memEnrollments) CountEnrolled(ctx context.Context, courseID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countEnrolledLocked(courseID), nil
}

func (r memEnrollments) seatFreeLocked(courseID string) error {
	c, ok := r.courses[courseID]
	if !ok {
		return sql.ErrNoRows
	}
	if c.MaxEnrollment != nil && r.countEnrolledLocked(courseID) >= *c.MaxEnrollment {
		return repository.ErrCapacityReached
	}
	return nil
}

func (r memEnrollments) Admit(ctx context.Context, enrollment *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if err := r.seatFreeLocked(enrollment.CourseID); err != nil {
		return err
	}
	for _, e := range r.enrollments {
		if e.StudentID == enrollment.StudentID && e.CourseID == enrollment.CourseID {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	enrollment.ID = r.nextID("enrollment")
	enrollment.Status = models.EnrollmentStatusEnrolled
	enrollment.RegisteredAt = now
	enrollment.UpdatedAt = now
	r.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r memEnrollments) Update(ctx context.Context, id string, status *models.EnrollmentStatus, remarks *string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if status != nil {
		if *status == models.EnrollmentStatusEnrolled && e.Status != models.EnrollmentStatusEnrolled {
			if err := r.seatFreeLocked(e.CourseID); err != nil {
				return nil, err
			}
		}
		e.Status = *status
	}
	if remarks != nil {
		e.Remarks = remarks
	}
	e.UpdatedAt = time.Now().UTC()
	r.enrollments[id] = e
	return &e, nil
}

func (r memEnrollments) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.enrollments, id)
	for rid, res := range r.results {
		if res.EnrollmentID == id {
			delete(r.results, rid)
		}
	}
	return nil
}

// memResults implements resultRepository and reportRepository.
type memResults struct{ *memStore }

func (r memResults) FindByID(ctx context.Context, id string) (*models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &res, nil
}

func (r memResults) FindDetailByID(ctx context.Context, id string) (*models.ResultDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := r.resultDetailLocked(res)
	return &d, nil
}

func (r memResults) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*models.ResultDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.EnrollmentID == enrollmentID {
			d := r.resultDetailLocked(res)
			return &d, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memResults) ExistsByEnrollmentID(ctx context.Context, enrollmentID string) (bool, error) {
	_, err := r.FindByEnrollmentID(ctx, enrollmentID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r memResults) filter(keep func(models.ResultDetail) bool) []models.ResultDetail {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ResultDetail
	for _, res := range r.results {
		d := r.resultDetailLocked(res)
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memResults) ListByStudent(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	return r.filter(func(d models.ResultDetail) bool { return d.StudentID == studentID }), nil
}

func (r memResults) ListByCourse(ctx context.Context, courseID string) ([]models.ResultDetail, error) {
	return r.filter(func(d models.ResultDetail) bool { return d.CourseID == courseID }), nil
}

func (r memResults) ListInRange(ctx context.Context, min, max float64) ([]models.ResultDetail, error) {
	out := r.filter(func(d models.ResultDetail) bool {
		return d.Marks != nil && *d.Marks >= min && *d.Marks <= max
	})
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Marks > *out[j].Marks })
	return out, nil
}

func (r memResults) Create(ctx context.Context, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enrollments[result.EnrollmentID]; !ok {
		return sql.ErrNoRows
	}
	for _, res := range r.results {
		if res.EnrollmentID == result.EnrollmentID {
			return repository.ErrDuplicate
		}
	}
	result.ID = r.nextID("result")
	result.ResultDate = time.Now().UTC()
	r.results[result.ID] = *result
	return nil
}

func (r memResults) Update(ctx context.Context, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[result.ID]; !ok {
		return sql.ErrNoRows
	}
	r.results[result.ID] = *result
	return nil
}

func (r memResults) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.results, id)
	return nil
}

func (r memResults) AverageGPAByStudent(ctx context.Context, studentID string) (float64, error) {
	return average(r.filter(func(d models.ResultDetail) bool { return d.StudentID == studentID }), func(d models.ResultDetail) *float64 { return d.GPAPoints }), nil
}

func (r memResults) AverageMarksByCourse(ctx context.Context, courseID string) (float64, error) {
	return average(r.filter(func(d models.ResultDetail) bool { return d.CourseID == courseID }), func(d models.ResultDetail) *float64 { return d.Marks }), nil
}

func (r memResults) GradeDistribution(ctx context.Context, courseID string) ([]models.GradeCount, error) {
	counts := map[string]int{}
	for _, d := range r.filter(func(d models.ResultDetail) bool { return d.CourseID == courseID && d.Grade != nil }) {
		counts[*d.Grade]++
	}
	var out []models.GradeCount
	for grade, n := range counts {
		out = append(out, models.GradeCount{Grade: grade, Count: n})
	}
	return out, nil
}

func (r memResults) EarnedCredits(ctx context.Context, studentID string) (int, error) {
	total := 0
	for _, d := range r.filter(func(d models.ResultDetail) bool {
		return d.StudentID == studentID && d.Status == models.EnrollmentStatusCompleted && d.Grade != nil && *d.Grade != "F"
	}) {
		total += d.Credits
	}
	return total, nil
}

func average(items []models.ResultDetail, pick func(models.ResultDetail) *float64) float64 {
	sum, n := 0.0, 0
	for _, d := range items {
		if v := pick(d); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// memCache implements CacheRepository.
type memCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]interface{}{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *[]string:
		*d = append([]string(nil), v.([]string)...)
	case *[]int:
		*d = append([]int(nil), v.([]int)...)
	default:
		return fmt.Errorf("unsupported cache destination %T", dest)
	}
	return nil
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.deletes = append(c.deletes, key)
	}
	return nil
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }
