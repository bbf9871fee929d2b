package controllers

import (
	"encoding/xml"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/entitlements"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/usercontext"
)

const proPriceLabel = "$4.99"

type PageController struct {
	cfg *config.Config
}

func NewPageController(d *Dependencies) *PageController {
	return &PageController{cfg: d.Config}
}

func (pc *PageController) Home(c *fiber.Ctx) error {
	return render(c, pc.cfg, "home", "Plan your Bible study together", nil)
}

func (pc *PageController) Pricing(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	return render(c, pc.cfg, "pricing", "Pricing", fiber.Map{
		"ProPrice":     proPriceLabel,
		"IsPro":        entitlements.AccessLevel(uc.AccessLevel).IsPro(),
		"OnTrial":      uc.OnTrial,
		"ProTokens":    entitlements.ReplenishTokens,
		"PlannerCost":  entitlements.TokensPerPlanner,
		"FreeGroupMax": entitlements.FreeGroupLimit,
	})
}

func (pc *PageController) Privacy(c *fiber.Ctx) error {
	return render(c, pc.cfg, "privacy", "Privacy Policy", nil)
}

func (pc *PageController) NotFound(c *fiber.Ctx) error {
	c.Status(fiber.StatusNotFound)
	return render(c, pc.cfg, "404", "Not found", nil)
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap lists the public landing and pricing pages.
func (pc *PageController) Sitemap(c *fiber.Ctx) error {
	today := time.Now().Format("2006-01-02")
	set := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: pc.cfg.App.PublicURL + "/", LastMod: today, ChangeFreq: "weekly", Priority: "1.0"},
			{Loc: pc.cfg.App.PublicURL + "/pricing", LastMod: today, ChangeFreq: "monthly", Priority: "0.8"},
		},
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.Send(append([]byte(xml.Header), out...))
}
