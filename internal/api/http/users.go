package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type userRow struct {
	ID       string `json:"id"`
	Username string `json:"username" validate:"required"`
	Name     string `json:"name"`
	Role     string `json:"role" validate:"required,oneof=student teacher admin"`
	Password string `json:"password,omitempty"` // plaintext, hashed on write
}

// POST /users/bulk — JSON array of users, upserted by username.
func BulkUpsertUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", http.StatusBadRequest)
			return
		}
		for _, row := range rows {
			if err := validate.Struct(row); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		ins, upd, err := upsertUsers(r.Context(), db, rows)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// GET /users?role=student
func ListUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		var rows *sql.Rows
		var err error
		if role == "" {
			rows, err = db.QueryContext(r.Context(),
				`SELECT id,username,name,role FROM users ORDER BY username`)
		} else {
			rows, err = db.QueryContext(r.Context(),
				`SELECT id,username,name,role FROM users WHERE role=$1 ORDER BY username`, role)
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		defer rows.Close()
		out := []userRow{}
		for rows.Next() {
			var u userRow
			if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Role); err != nil {
				writeErr(w, err)
				return
			}
			out = append(out, u)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func upsertUsers(ctx context.Context, db *sql.DB, rows []userRow) (inserted, updated int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, row := range rows {
		var hash string
		if row.Password != "" {
			h, err := bcrypt.GenerateFromPassword([]byte(row.Password), bcrypt.DefaultCost)
			if err != nil {
				return 0, 0, err
			}
			hash = string(h)
		}

		var existingID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE username=$1`, row.Username).Scan(&existingID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id := row.ID
			if id == "" {
				id = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO users (id,username,name,role,password_hash,created_at)
				 VALUES ($1,$2,$3,$4,$5,$6)`,
				id, row.Username, row.Name, row.Role, hash, now); err != nil {
				return 0, 0, err
			}
			inserted++
		case err != nil:
			return 0, 0, err
		default:
			if hash != "" {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET name=$1, role=$2, password_hash=$3 WHERE id=$4`,
					row.Name, row.Role, hash, existingID)
			} else {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET name=$1, role=$2 WHERE id=$3`,
					row.Name, row.Role, existingID)
			}
			if err != nil {
				return 0, 0, err
			}
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}
