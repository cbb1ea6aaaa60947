package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"github.com/shopspring/decimal"
)

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile

	findErr   error
	updateErr error
	assignErr error
	roleErr   error

	updateCalls int
	assignCalls int
	roleCalls   int

	// beforeAssign 模拟并发请求抢先写入学号
	beforeAssign func(p *model.Profile)
}

func newFakeProfiles(profiles ...model.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[string]*model.Profile)}
	for i := range profiles {
		p := profiles[i]
		f.profiles[p.ID] = &p
	}
	return f
}

func (f *fakeProfiles) get(id string) model.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.profiles[id]
}

func (f *fakeProfiles) FindByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, util.ErrProfileNotFound
	}
	cp := *p
	if p.StudentID != nil {
		sid := *p.StudentID
		cp.StudentID = &sid
	}
	return &cp, nil
}

func (f *fakeProfiles) CreateIfAbsent(_ context.Context, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.ID]; !ok {
		cp := *profile
		f.profiles[profile.ID] = &cp
	}
	return nil
}

func (f *fakeProfiles) UpdateDetails(_ context.Context, id string, details model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return util.ErrProfileNotFound
	}
	p.FullName = details.FullName
	p.Email = details.Email
	p.Phone = details.Phone
	p.Address = details.Address
	p.City = details.City
	p.State = details.State
	p.Country = details.Country
	p.Pincode = details.Pincode
	p.Qualification = details.Qualification
	return nil
}

func (f *fakeProfiles) AssignStudentID(_ context.Context, id, studentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignCalls++
	if f.assignErr != nil {
		return false, f.assignErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return false, nil
	}
	if f.beforeAssign != nil {
		f.beforeAssign(p)
	}
	if p.HasStudentID() {
		return false, nil
	}
	// 与 student_id 唯一索引一致
	for otherID, other := range f.profiles {
		if otherID != id && other.HasStudentID() && *other.StudentID == studentID {
			return false, util.ErrStudentIDTaken
		}
	}
	p.StudentID = &studentID
	return true, nil
}

func (f *fakeProfiles) NormalizeRole(_ context.Context, id string, role model.UserRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls++
	if f.roleErr != nil {
		return f.roleErr
	}
	if p, ok := f.profiles[id]; ok && !p.Role.IsElevated() {
		p.Role = role
	}
	return nil
}

// fakeEnrollments 在互斥锁内强制 (user_id, course_id) 唯一
type fakeEnrollments struct {
	mu   sync.Mutex
	rows map[[2]string]model.Enrollment
	seq  int

	// skipExists 让所有请求都越过预检查，只靠唯一约束裁决
	skipExists bool
	createErr  error
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{rows: make(map[[2]string]model.Enrollment)}
}

func (f *fakeEnrollments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeEnrollments) Exists(_ context.Context, userID, courseID string) (bool, error) {
	if f.skipExists {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[[2]string{userID, courseID}]
	return ok, nil
}

func (f *fakeEnrollments) Create(_ context.Context, e *model.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	key := [2]string{e.UserID, e.CourseID}
	if _, ok := f.rows[key]; ok {
		return util.ErrAlreadyEnrolled
	}
	f.seq++
	e.ID = "enr-" + strconv.Itoa(f.seq)
	f.rows[key] = *e
	return nil
}

func (f *fakeEnrollments) ListByUser(_ context.Context, userID string) ([]model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Enrollment
	for key, e := range f.rows {
		if key[0] == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeCourses struct {
	courses map[string]*model.Course
	err     error
}

func newFakeCourses(courses ...model.Course) *fakeCourses {
	f := &fakeCourses{courses: make(map[string]*model.Course)}
	for i := range courses {
		c := courses[i]
		f.courses[c.ID] = &c
	}
	return f
}

func (f *fakeCourses) FindByID(_ context.Context, id string) (*model.Course, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.courses[id]
	if !ok {
		return nil, util.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) ListPublished(_ context.Context, page, limit int) ([]model.Course, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []model.Course
	for _, c := range f.courses {
		if c.Published {
			out = append(out, *c)
		}
	}
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	admin      []EnrollmentNotice
	student    []EnrollmentNotice
	adminErr   error
	studentErr error
	panicOn    string
}

func (f *fakeNotifier) NotifyAdmin(_ context.Context, n EnrollmentNotice) error {
	if f.panicOn == taskNotifyAdmin {
		panic("smtp relay exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminErr != nil {
		return f.adminErr
	}
	f.admin = append(f.admin, n)
	return nil
}

func (f *fakeNotifier) NotifyStudent(_ context.Context, n EnrollmentNotice) error {
	if f.panicOn == taskNotifyStudent {
		panic("smtp relay exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.studentErr != nil {
		return f.studentErr
	}
	f.student = append(f.student, n)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []interface{}
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, value)
	return nil
}

type fakeIDCaller struct {
	id  string
	err error
}

func (f fakeIDCaller) Call(context.Context, string, string) (string, error) {
	return f.id, f.err
}

var errFunctionMissing = errors.New("function generate_student_id does not exist")

var june2025 = time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

func fixedLocal(suffix int) *LocalStrategy {
	return &LocalStrategy{
		Now:    func() time.Time { return june2025 },
		Suffix: func() int { return suffix },
	}
}

type testEnv struct {
	svc         *EnrollmentService
	profiles    *fakeProfiles
	enrollments *fakeEnrollments
	courses     *fakeCourses
	notifier    *fakeNotifier
	publisher   *fakePublisher
}

func newTestEnv(caller fakeIDCaller, profiles ...model.Profile) *testEnv {
	env := &testEnv{
		profiles:    newFakeProfiles(profiles...),
		enrollments: newFakeEnrollments(),
		courses: newFakeCourses(
			model.Course{UUIDBase: model.UUIDBase{ID: "c1"}, Title: "Full Stack Web Development", Price: decimal.RequireFromString("3999"), Published: true},
			model.Course{UUIDBase: model.UUIDBase{ID: "c2"}, Title: "Data Science with Python", Price: decimal.RequireFromString("4999"), Published: true},
		),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	generator := NewStudentIDGenerator(NewLocationCodes(), NewRemoteStrategy(caller), fixedLocal(1234))
	env.svc = NewEnrollmentService(env.profiles, env.enrollments, env.courses, generator, env.notifier, env.publisher, time.Second)
	env.svc.now = func() time.Time { return june2025 }
	return env
}
