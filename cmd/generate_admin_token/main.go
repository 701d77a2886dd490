package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"carpool-backend/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	userID := flag.Uint("user", 0, "ID пользователя в токене, для администратора можно 0")
	role := flag.String("role", "admin", "роль: admin, driver или user")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET не задан")
	}
	if *role != "admin" && *userID == 0 {
		log.Fatal("для роли, отличной от admin, нужен -user")
	}

	var (
		tokenString string
		err         error
	)
	if *role == "admin" && *userID == 0 {
		tokenString, err = utils.GenerateAdminJWT(jwtSecret)
	} else {
		tokenString, err = utils.GenerateJWT(jwtSecret, uint(*userID), *role, utils.TokenTTL)
	}
	if err != nil {
		log.Fatalf("Ошибка генерации токена: %v", err)
	}

	fmt.Printf("Generated %s token: %s\n", *role, tokenString)
}
