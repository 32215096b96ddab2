package model

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
)

func CreateID() PostID {
	uuid, _ := uuid.NewRandom()
	return PostID(base58.Encode(uuid[:]))
}
