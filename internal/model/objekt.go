package model

import "time"

// Metadata is the token record returned by the metadata service.
type Metadata struct {
	Name   string         `json:"name"`
	Image  string         `json:"image"`
	Objekt MetadataObjekt `json:"objekt"`
}

// MetadataObjekt is the collection-level part of a token's metadata.
type MetadataObjekt struct {
	CollectionID    string   `json:"collectionId"`
	Season          string   `json:"season"`
	Member          string   `json:"member"`
	Artists         []string `json:"artists"`
	CollectionNo    string   `json:"collectionNo"`
	Class           string   `json:"class"`
	FrontImage      string   `json:"frontImage"`
	BackImage       string   `json:"backImage"`
	ThumbnailImage  string   `json:"thumbnailImage"`
	AccentColor     string   `json:"accentColor"`
	BackgroundColor string   `json:"backgroundColor"`
	TextColor       string   `json:"textColor"`
	ObjektNo        int      `json:"objektNo"`
	Transferable    bool     `json:"transferable"`
}

// Objekt is the metadata reshaped for subscribers.
type Objekt struct {
	ID              string    `json:"id"`
	Artist          string    `json:"artist"`
	BackImage       string    `json:"backImage"`
	BackgroundColor string    `json:"backgroundColor"`
	Class           string    `json:"class"`
	CollectionID    string    `json:"collectionId"`
	CollectionNo    string    `json:"collectionNo"`
	CreatedAt       time.Time `json:"createdAt"`
	FrontImage      string    `json:"frontImage"`
	Member          string    `json:"member"`
	MintedAt        time.Time `json:"mintedAt"`
	OnOffline       string    `json:"onOffline"`
	ReceivedAt      time.Time `json:"receivedAt"`
	Season          string    `json:"season"`
	Serial          int       `json:"serial"`
	Slug            string    `json:"slug"`
	TextColor       string    `json:"textColor"`
	Transferable    bool      `json:"transferable"`
}

const (
	Online  = "online"
	Offline = "offline"
)
