package utils

// Вспомогательные функции для отображения статусов сессий и категорий
func GetStatusEmoji(status string) string {
	switch status {
	case "active":
		return "▶️"
	case "completed":
		return "✅"
	case "auto_completed":
		return "☑️"
	case "missed":
		return "❌"
	case "dismissed":
		return "➖"
	case "notified":
		return "🔔"
	default:
		return "⬜"
	}
}

func GetStatusName(status string) string {
	switch status {
	case "active":
		return "In progress"
	case "completed":
		return "Done"
	case "auto_completed":
		return "Auto-completed"
	case "missed":
		return "Missed"
	case "dismissed":
		return "Dismissed"
	case "notified":
		return "Reminded"
	default:
		return "Upcoming"
	}
}

func GetCategoryEmoji(icon string) string {
	if icon == "" {
		return "📌"
	}
	return icon
}
