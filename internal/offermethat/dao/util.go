package dao

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

// -migration
type PaginationResponse struct {
	Count  int64 `json:"count"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
	Result any   `json:"result"`
}

func PaginationRequest(offset int, limit int, query *gorm.DB, target any) (res PaginationResponse, err error) {
	// Count query
	if err := query.Session(&gorm.Session{}).Model(target).Count(&res.Count).Error; err != nil {
		return res, err
	}

	// Data query
	if err := query.Offset(offset).Limit(limit).Find(target).Error; err != nil {
		return res, err
	}

	res.Result = target
	res.Limit = limit
	res.Offset = offset

	return res, nil
}

func AddDefaultUser(db *gorm.DB, email string) *User {
	tm := time.Now()
	user := User{
		ID:             GenUUID(),
		Email:          email,
		Password:       GenPasswordHash("password123"),
		FirstName:      "Admin",
		LastName:       "Admin",
		Username:       GenUsername(),
		LastLoginTime:  &tm,
		TokenUpdatedAt: &tm,
		IsActive:       true,
		IsSuperuser:    true,
	}

	if err := db.Create(&user).Error; err != nil {
		log.Println(err)
		return nil
	}
	log.Println("User created")
	return &user
}

func GenPassword() string {
	return password.MustGenerate(12, 6, 0, false, false)
}

// GenUsername generates the opaque public key under which an owner's forms
// are reachable.
func GenUsername() string {
	return password.MustGenerate(16, 6, 0, true, true)
}

// Password hash generation for the database
func GenPasswordHash(pass string) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	salt := make([]rune, 32)
	for i := range salt {
		nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		salt[i] = letters[nBig.Int64()]
	}

	return fmt.Sprintf("pbkdf2_sha256$260000$%s$%s",
		string(salt),
		base64.StdEncoding.EncodeToString(pbkdf2.Key([]byte(pass), []byte(string(salt)), 260000, 32, sha256.New)),
	)
}

// ComparePasswordHash checks a plain password against a stored
// pbkdf2_sha256$iterations$salt$hash value.
func ComparePasswordHash(pass string, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 4 || parts[0] != "pbkdf2_sha256" {
		return false
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}

	expected, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}

	actual := pbkdf2.Key([]byte(pass), []byte(parts[2]), iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(expected, actual) == 1
}

func pointerToStr(str *string) string {
	if str == nil {
		return ""
	}
	return *str
}
