package postgres

import (
	"database/sql"

	"github.com/Thaddeus254/blocklend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.LoanRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:             db,
		LoanRepository: NewLoanRepository(db),
	}
}
