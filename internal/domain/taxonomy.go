package domain

type Tag struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	Language string `db:"language"`
}

type Section struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	Language string `db:"language"`
}
