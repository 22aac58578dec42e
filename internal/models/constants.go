package models

// ListingStatus константы статусов объявлений
const (
	ListingStatusPending  = "pending"
	ListingStatusActive   = "active"
	ListingStatusSold     = "sold"
	ListingStatusDeleted  = "deleted"
	ListingStatusRejected = "rejected"
)

// PricingMode константы режимов ценообразования
const (
	PricingModeFixed      = "fixed"
	PricingModeNegotiable = "negotiable"
	PricingModeBidding    = "bidding"
)

// BidStatus константы статусов ставок
const (
	BidStatusActive   = "active"
	BidStatusAccepted = "accepted"
	BidStatusRejected = "rejected"
)

// Visibility константы видимости объявлений
const (
	VisibilityUniversity = "university"
	VisibilityAll        = "all"
)

// Role константы ролей пользователей
const (
	RoleStudent   = "student"
	RoleModerator = "moderator"
)

// Category константы категорий объявлений
const (
	CategoryBooks       = "books"
	CategoryElectronics = "electronics"
	CategoryFurniture   = "furniture"
	CategoryClothing    = "clothing"
	CategorySports      = "sports"
	CategoryTickets     = "tickets"
	CategoryHousing     = "housing"
	CategoryOther       = "other"
)

// Condition константы состояний товара
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// MessageAuthor константы типов авторов сообщений
const (
	MessageAuthorUser   = "user"
	MessageAuthorSystem = "system"
)

// ValidListingStatuses список валидных статусов объявлений
var ValidListingStatuses = map[string]struct{}{
	ListingStatusPending:  {},
	ListingStatusActive:   {},
	ListingStatusSold:     {},
	ListingStatusDeleted:  {},
	ListingStatusRejected: {},
}

// ValidPricingModes список валидных режимов ценообразования
var ValidPricingModes = map[string]struct{}{
	PricingModeFixed:      {},
	PricingModeNegotiable: {},
	PricingModeBidding:    {},
}

// ValidBidStatuses список валидных статусов ставок
var ValidBidStatuses = map[string]struct{}{
	BidStatusActive:   {},
	BidStatusAccepted: {},
	BidStatusRejected: {},
}

// ValidVisibilities список валидных значений видимости
var ValidVisibilities = map[string]struct{}{
	VisibilityUniversity: {},
	VisibilityAll:        {},
}

// ValidCategories список валидных категорий
var ValidCategories = map[string]struct{}{
	CategoryBooks:       {},
	CategoryElectronics: {},
	CategoryFurniture:   {},
	CategoryClothing:    {},
	CategorySports:      {},
	CategoryTickets:     {},
	CategoryHousing:     {},
	CategoryOther:       {},
}

// ValidConditions список валидных состояний товара
var ValidConditions = map[string]struct{}{
	ConditionNew:     {},
	ConditionLikeNew: {},
	ConditionGood:    {},
	ConditionFair:    {},
	ConditionPoor:    {},
}
