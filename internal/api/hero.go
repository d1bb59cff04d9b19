package api

import (
	"net/http"

	"github.com/go-faster/jx"
)

// Hero content is fixed; the storefront animates over it client-side.
var heroContent = struct {
	Title         string
	Subtitle      string
	BackgroundURL string
	VideoURL      string
}{
	Title:         "Crafting Excellence in Every Stitch",
	Subtitle:      "Discover a wide range of premium textiles and apparel.",
	BackgroundURL: "/hero-bg.jpg",
	VideoURL:      "/apparel.mp4",
}

// HeroAnimated returns the fixed hero-section content object.
func (h *Handler) HeroAnimated(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("title")
	e.Str(heroContent.Title)
	e.FieldStart("subtitle")
	e.Str(heroContent.Subtitle)
	e.FieldStart("backgroundUrl")
	e.Str(heroContent.BackgroundURL)
	e.FieldStart("videoUrl")
	e.Str(heroContent.VideoURL)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
