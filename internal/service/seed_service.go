package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusmarket/campus-market-backend/internal/models"
	"github.com/campusmarket/campus-market-backend/internal/repository"
)

// SeedService генерирует тестовые данные для development окружения.
// В production маршрут не регистрируется.
type SeedService struct {
	users    *repository.UserRepository
	listings *repository.ListingRepository
	bids     *repository.BidRepository

	universityDomain string
}

// NewSeedService создаёт сервис генерации данных.
func NewSeedService(users *repository.UserRepository, listings *repository.ListingRepository, bids *repository.BidRepository, universityDomain string) *SeedService {
	return &SeedService{
		users:            users,
		listings:         listings,
		bids:             bids,
		universityDomain: universityDomain,
	}
}

// SeedAccount учётные данные сгенерированного аккаунта.
type SeedAccount struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SeedResult итог генерации.
type SeedResult struct {
	Users    int           `json:"users"`
	Listings int           `json:"listings"`
	Bids     int           `json:"bids"`
	Accounts []SeedAccount `json:"accounts"`
}

const seedPassword = "password123"

var seedTitles = []string{
	"Учебник по матанализу, 2 курс",
	"Ноутбук Lenovo ThinkPad, рабочий",
	"Письменный стол ИКЕА",
	"Зимняя куртка, размер M",
	"Гантели 2x5 кг",
	"Билет на студвесну",
	"Настольная лампа",
	"Велосипед Stels, требует ремонта",
}

var seedCategories = []string{
	models.CategoryBooks, models.CategoryElectronics, models.CategoryFurniture,
	models.CategoryClothing, models.CategorySports, models.CategoryTickets, models.CategoryOther,
}

var seedConditions = []string{
	models.ConditionNew, models.ConditionLikeNew, models.ConditionGood, models.ConditionFair,
}

// Seed создаёт модератора, студентов, активные объявления и ставки.
func (s *SeedService) Seed(ctx context.Context, numUsers, numListings int) (*SeedResult, error) {
	if numUsers < 2 {
		numUsers = 2
	}
	if numListings < 1 {
		numListings = numUsers * 2
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("seed service: hash password: %w", err)
	}

	result := &SeedResult{}

	moderator := &models.User{
		Email:        "moderator@" + s.universityDomain,
		Username:     "moderator",
		PasswordHash: string(passHash),
		Role:         models.RoleModerator,
		University:   s.universityDomain,
	}
	if err := s.users.Create(ctx, moderator); err != nil {
		return nil, err
	}
	result.Users++
	result.Accounts = append(result.Accounts, SeedAccount{
		Email: moderator.Email, Password: seedPassword, Role: moderator.Role,
	})

	students := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		student := &models.User{
			Email:        fmt.Sprintf("student%d@%s", i+1, s.universityDomain),
			Username:     fmt.Sprintf("student%d", i+1),
			PasswordHash: string(passHash),
			Role:         models.RoleStudent,
			University:   s.universityDomain,
		}
		if err := s.users.Create(ctx, student); err != nil {
			return nil, err
		}
		students = append(students, student)
		result.Users++
	}
	result.Accounts = append(result.Accounts, SeedAccount{
		Email: students[0].Email, Password: seedPassword, Role: students[0].Role,
	})

	for i := 0; i < numListings; i++ {
		owner := students[rand.Intn(len(students))]
		price := decimal.NewFromInt(int64(500 + rand.Intn(10000)))

		pricingMode := models.PricingModeFixed
		var listingPrice *decimal.Decimal = &price
		if i%3 == 0 {
			pricingMode = models.PricingModeBidding
		}

		listing := &models.Listing{
			OwnerID:     owner.ID,
			Title:       seedTitles[rand.Intn(len(seedTitles))],
			Description: "Сгенерированное объявление для разработки. Состояние и цена условные, пишите в личные сообщения.",
			Category:    seedCategories[rand.Intn(len(seedCategories))],
			Condition:   seedConditions[rand.Intn(len(seedConditions))],
			PricingMode: pricingMode,
			Price:       listingPrice,
			Visibility:  models.VisibilityUniversity,
			Status:      models.ListingStatusActive,
		}
		if err := s.listings.Create(ctx, listing); err != nil {
			return nil, err
		}
		result.Listings++

		// Несколько ставок на объявления с торгами.
		if pricingMode == models.PricingModeBidding {
			amount := decimal.NewFromInt(int64(100 + rand.Intn(500)))
			for j := 0; j < rand.Intn(3)+1; j++ {
				bidder := students[rand.Intn(len(students))]
				if bidder.ID == owner.ID {
					continue
				}
				bid := &models.Bid{
					ListingID: listing.ID,
					BidderID:  bidder.ID,
					Amount:    amount,
				}
				if err := s.bids.Create(ctx, bid); err != nil {
					continue
				}
				result.Bids++
				amount = amount.Add(decimal.NewFromInt(int64(50 + rand.Intn(300))))
			}
		}
	}

	return result, nil
}
