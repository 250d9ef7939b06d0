package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSink writes notifications to the application log
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Notify(_ context.Context, n Notification) error {
	l := s.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	l.WithFields(logrus.Fields{
		"employee_id": n.EmployeeID,
		"tenant_id":   n.TenantID,
		"severity":    n.Severity,
		"category":    n.Category,
		"metadata":    n.Metadata,
	}).Info(n.Title + ": " + n.Message)
	return nil
}
