package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"time"

	"learnhub_backend/pkg/mailer"

	"github.com/shopspring/decimal"
)

// EnrollmentNotice 邮件模板所需的数据
type EnrollmentNotice struct {
	StudentName  string
	StudentEmail string
	Phone        string
	StudentID    string
	CourseTitle  string
	CoursePrice  decimal.Decimal
	Direct       bool
	EnrolledAt   time.Time
}

var adminNoticeTmpl = template.Must(template.New("admin").Parse(`<h2>New course enrollment</h2>
<table>
  <tr><td><strong>Student</strong></td><td>{{.StudentName}}</td></tr>
  <tr><td><strong>Email</strong></td><td>{{.StudentEmail}}</td></tr>
  {{if .Phone}}<tr><td><strong>Phone</strong></td><td>{{.Phone}}</td></tr>{{end}}
  <tr><td><strong>Student ID</strong></td><td>{{.StudentID}}</td></tr>
  <tr><td><strong>Course</strong></td><td>{{.CourseTitle}}</td></tr>
  <tr><td><strong>Price</strong></td><td>{{.CoursePrice.StringFixed 2}}</td></tr>
  <tr><td><strong>Type</strong></td><td>{{if .Direct}}Direct enrollment{{else}}Enrollment form{{end}}</td></tr>
  <tr><td><strong>Enrolled at</strong></td><td>{{.EnrolledAt.Format "2006-01-02 15:04 MST"}}</td></tr>
</table>`))

var studentNoticeTmpl = template.Must(template.New("student").Parse(`<p>Hi {{.StudentName}},</p>
<p>You are now enrolled in <strong>{{.CourseTitle}}</strong>.</p>
<p>Your student ID is <strong>{{.StudentID}}</strong>. Please keep it for all future communication.</p>
<p>You can follow your progress from the student dashboard.</p>`))

// NotificationService 组装并发送报名通知邮件
type NotificationService struct {
	mailer     mailer.Mailer
	from       mail.Address
	adminEmail string
}

func NewNotificationService(m mailer.Mailer, fromName, fromEmail, adminEmail string) *NotificationService {
	return &NotificationService{
		mailer:     m,
		from:       mail.Address{Name: fromName, Address: fromEmail},
		adminEmail: adminEmail,
	}
}

func render(tmpl *template.Template, notice EnrollmentNotice) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, notice); err != nil {
		return "", fmt.Errorf("render %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func (s *NotificationService) NotifyAdmin(ctx context.Context, notice EnrollmentNotice) error {
	if s.adminEmail == "" {
		return fmt.Errorf("admin email not configured")
	}
	html, err := render(adminNoticeTmpl, notice)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, mailer.Message{
		From:    s.from,
		To:      []mail.Address{{Address: s.adminEmail}},
		Subject: fmt.Sprintf("New enrollment: %s - %s", notice.StudentName, notice.CourseTitle),
		HTML:    html,
	})
}

func (s *NotificationService) NotifyStudent(ctx context.Context, notice EnrollmentNotice) error {
	if notice.StudentEmail == "" {
		return fmt.Errorf("student has no email address")
	}
	html, err := render(studentNoticeTmpl, notice)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, mailer.Message{
		From:    s.from,
		To:      []mail.Address{{Name: notice.StudentName, Address: notice.StudentEmail}},
		Subject: fmt.Sprintf("Enrollment confirmed: %s", notice.CourseTitle),
		HTML:    html,
	})
}
