package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/arrivapp-go-api/internal/attendance"
	"github.com/noah-isme/arrivapp-go-api/internal/models"
	"github.com/noah-isme/arrivapp-go-api/pkg/mailer"
)

const automatedFooter = "\n---\nThis is an automated message from ArrivApp. Please do not reply.\n"

// Times passed to the builders below are expected in the school's location.

// CheckinMessage tells the parent the student arrived.
func CheckinMessage(student models.Student, at time.Time, late bool, threshold attendance.ClockTime) mailer.Message {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "%s (%s) checked in at school at %s.\n", student.Name, student.ClassName, at.Format("15:04"))

	subject := fmt.Sprintf("ArrivApp: %s has arrived at school", student.Name)
	if late {
		subject = fmt.Sprintf("ArrivApp: %s arrived late", student.Name)
		fmt.Fprintf(&b, "\nThe check-in was recorded after the %s start time.\n", threshold)
		b.WriteString("If the delay had a reason, please contact the school or submit a justification.\n")
	}
	b.WriteString(automatedFooter)

	return mailer.Message{To: student.ParentEmail, Subject: subject, Body: b.String()}
}

// CheckoutMessage tells the parent the student left, flagging early dismissals.
func CheckoutMessage(student models.Student, checkin, checkout time.Time, durationMinutes int, early bool) mailer.Message {
	var b strings.Builder
	b.WriteString("Hello,\n\n")

	subject := fmt.Sprintf("ArrivApp: %s has left school", student.Name)
	if early {
		subject = fmt.Sprintf("ArrivApp: %s left school early", student.Name)
		b.WriteString("EARLY DISMISSAL\n\n")
		fmt.Fprintf(&b, "%s (%s) checked out before the usual time.\n\n", student.Name, student.ClassName)
	} else {
		fmt.Fprintf(&b, "%s (%s) checked out of school.\n\n", student.Name, student.ClassName)
	}

	b.WriteString("Today:\n")
	fmt.Fprintf(&b, "- Check-in: %s\n", checkin.Format("15:04"))
	fmt.Fprintf(&b, "- Check-out: %s\n", checkout.Format("15:04"))
	fmt.Fprintf(&b, "- Time at school: %s\n", FormatDuration(durationMinutes))
	if early {
		b.WriteString("\nIf this early departure was not planned, please contact the school immediately.\n")
	}
	b.WriteString(automatedFooter)

	return mailer.Message{To: student.ParentEmail, Subject: subject, Body: b.String()}
}

// AbsenceParentMessage tells the parent no check-in was recorded by the cutoff.
func AbsenceParentMessage(student models.Student, school models.School, reportedAt time.Time) mailer.Message {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "%s (%s) has not checked in at school today.\n\n", student.Name, student.ClassName)
	fmt.Fprintf(&b, "Date: %s\nReported at: %s\n\n", reportedAt.Format("02/01/2006"), reportedAt.Format("15:04"))
	b.WriteString("If your child is at school, please contact the office. If they are absent, please let the school know.\n\n")
	fmt.Fprintf(&b, "School: %s\n", school.Name)
	if school.ContactEmail != "" {
		fmt.Fprintf(&b, "Contact: %s\n", school.ContactEmail)
	}
	b.WriteString(automatedFooter)

	return mailer.Message{
		To:      student.ParentEmail,
		Subject: fmt.Sprintf("ArrivApp: %s has not checked in", student.Name),
		Body:    b.String(),
	}
}

// AbsenceSchoolSummary lists the day's newly absent students for the school contact.
func AbsenceSchoolSummary(school models.School, students []models.Student, reportedAt time.Time) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nAbsence report for %s.\n\n", school.Name)
	fmt.Fprintf(&b, "Date: %s\nReported at: %s\n\n", reportedAt.Format("02/01/2006"), reportedAt.Format("15:04"))
	b.WriteString("Students without a check-in:\n\n")
	for _, student := range students {
		fmt.Fprintf(&b, "- %s (%s), parent: %s\n", student.Name, student.ClassName, student.ParentEmail)
	}
	fmt.Fprintf(&b, "\nTotal: %d absent\n", len(students))
	b.WriteString(automatedFooter)

	return mailer.Message{
		To:      school.ContactEmail,
		Subject: fmt.Sprintf("ArrivApp: absent students (%s)", school.Name),
		Body:    b.String(),
	}
}

// AbsenceAdminSummary is the per-school absence digest sent to each administrator.
func AbsenceAdminSummary(to string, school models.School, students []models.Student, reportedAt time.Time) mailer.Message {
	var b strings.Builder
	b.WriteString("Hello,\n\nAutomatic absence report.\n\n")
	fmt.Fprintf(&b, "School: %s\nDate: %s\nTime: %s\n\n", school.Name, reportedAt.Format("02/01/2006"), reportedAt.Format("15:04"))
	fmt.Fprintf(&b, "Absent students (%d):\n\n", len(students))
	for _, student := range students {
		fmt.Fprintf(&b, "- %s (%s)\n  Parent: %s\n  Code: %s\n", student.Name, student.ClassName, student.ParentEmail, student.Code)
	}
	b.WriteString(automatedFooter)

	return mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("ArrivApp admin: absences at %s", school.Name),
		Body:    b.String(),
	}
}

// JustificationSubmittedMessage confirms receipt of a justification to the parent.
func JustificationSubmittedMessage(student models.Student, justification models.Justification) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nWe received your justification for %s.\n\n", student.Name)
	writeJustificationDetails(&b, student, justification, "Pending review")
	b.WriteString("\nThe school will review it and you will be notified of the decision.\n")
	b.WriteString(automatedFooter)

	return mailer.Message{
		To:      justification.SubmittedBy,
		Subject: fmt.Sprintf("ArrivApp: justification received for %s", student.Name),
		Body:    b.String(),
	}
}

// JustificationReviewedMessage reports the review decision to the parent.
func JustificationReviewedMessage(student models.Student, justification models.Justification) mailer.Message {
	status := statusLabel(justification.Status)

	var b strings.Builder
	b.WriteString("Hello,\n\nYour justification has been reviewed.\n\n")
	writeJustificationDetails(&b, student, justification, status)
	if strings.TrimSpace(justification.Notes) != "" {
		fmt.Fprintf(&b, "- Notes: %s\n", justification.Notes)
	}
	if justification.Status == models.JustificationApproved {
		b.WriteString("\nThe justification was approved. Thank you for keeping us informed.\n")
	} else {
		b.WriteString("\nThe justification was rejected. Please contact the school if you have questions.\n")
	}
	b.WriteString(automatedFooter)

	return mailer.Message{
		To:      justification.SubmittedBy,
		Subject: fmt.Sprintf("ArrivApp: justification %s for %s", strings.ToLower(status), student.Name),
		Body:    b.String(),
	}
}

// FormatDuration renders whole minutes as "Hh Mmin".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
}

func writeJustificationDetails(b *strings.Builder, student models.Student, justification models.Justification, status string) {
	b.WriteString("Details:\n")
	fmt.Fprintf(b, "- Student: %s\n", student.Name)
	fmt.Fprintf(b, "- Type: %s\n", typeLabel(justification.Type))
	fmt.Fprintf(b, "- Date: %s\n", justification.Date)
	fmt.Fprintf(b, "- Status: %s\n", status)
}

func typeLabel(kind models.JustificationType) string {
	switch kind {
	case models.JustificationAbsence:
		return "Absence"
	case models.JustificationTardiness:
		return "Late arrival"
	case models.JustificationEarlyDismissal:
		return "Early dismissal"
	default:
		return string(kind)
	}
}

func statusLabel(status models.JustificationStatus) string {
	switch status {
	case models.JustificationApproved:
		return "Approved"
	case models.JustificationRejected:
		return "Rejected"
	default:
		return "Pending review"
	}
}
