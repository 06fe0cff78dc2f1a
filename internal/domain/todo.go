package domain

import "time"

// User owns todos.
type User struct {
	ID    int64   `gorm:"primaryKey" json:"id"`
	Name  *string `json:"name,omitempty"`
	Email string  `gorm:"uniqueIndex;not null" json:"email"`
	Todos []Todo  `json:"-"`
}

// Todo is the source-of-truth record for a todo item.
type Todo struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Completed bool      `gorm:"not null" json:"completed"`
	DueDate   time.Time `gorm:"not null;index" json:"dueDate"`
	UserID    int64     `gorm:"not null;index" json:"userId"`
	User      *User     `json:"-"`
	Comments  []Comment `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment is attached to exactly one todo and is never edited.
type Comment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	TodoID    int64     `gorm:"not null;index" json:"todoId"`
	Todo      *Todo     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Count is the result of counting or bulk-deleting todos.
type Count struct {
	Count int64 `json:"count"`
}
