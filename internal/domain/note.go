package domain

import "time"

// Note es un registro de contenido creado por otra parte del producto.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyCount es una barra del histograma de notas creadas.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StorageUsage es la estimacion de almacenamiento en MB contra la cuota fija.
type StorageUsage struct {
	UsedMB  float64 `json:"used_mb"`
	FreeMB  float64 `json:"free_mb"`
	TotalMB float64 `json:"total_mb"`
}
