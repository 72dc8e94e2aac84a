package models

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&ReportStatus{},
		&Tag{},
		&Report{},
		&ReportStatusHistory{},
		&ReportVote{},
		&Comment{},
		&NotificationType{},
		&Notification{},
		&UserNotificationPreference{},
		&UploadedFile{},
	}
}
