package models

type Account struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"owner_user_id"`
}
