package reference

import "github.com/seenimoa/stockpulse/pkg/models"

// DefaultProfiles lists the tickers the service knows by name. Symbols are
// kept to three letters or more: the extractor matches them as substrings.
var DefaultProfiles = []models.SymbolProfile{
	{Symbol: "AAPL", CompanyName: "Apple Inc.", Aliases: []string{"Apple", "iPhone", "Tim Cook", "Cupertino"}},
	{Symbol: "MSFT", CompanyName: "Microsoft Corporation", Aliases: []string{"Microsoft", "Azure", "Satya Nadella", "Windows"}},
	{Symbol: "GOOGL", CompanyName: "Alphabet Inc.", Aliases: []string{"Alphabet", "Google", "Sundar Pichai", "YouTube"}},
	{Symbol: "AMZN", CompanyName: "Amazon.com Inc.", Aliases: []string{"Amazon", "AWS", "Andy Jassy"}},
	{Symbol: "TSLA", CompanyName: "Tesla Inc.", Aliases: []string{"Tesla", "Elon Musk", "Cybertruck"}},
	{Symbol: "NVDA", CompanyName: "NVIDIA Corporation", Aliases: []string{"NVIDIA", "GeForce", "Jensen Huang"}},
	{Symbol: "META", CompanyName: "Meta Platforms Inc.", Aliases: []string{"Meta Platforms", "Facebook", "Instagram", "Mark Zuckerberg"}},
	{Symbol: "NFLX", CompanyName: "Netflix Inc.", Aliases: []string{"Netflix", "streaming"}},
	{Symbol: "AMD", CompanyName: "Advanced Micro Devices Inc.", Aliases: []string{"Advanced Micro Devices", "Ryzen", "Lisa Su"}},
	{Symbol: "INTC", CompanyName: "Intel Corporation", Aliases: []string{"Intel", "Pat Gelsinger"}},
	{Symbol: "JPM", CompanyName: "JPMorgan Chase & Co.", Aliases: []string{"JPMorgan", "JP Morgan", "Jamie Dimon"}},
	{Symbol: "ORCL", CompanyName: "Oracle Corporation", Aliases: []string{"Oracle", "Larry Ellison"}},
	{Symbol: "CRM", CompanyName: "Salesforce Inc.", Aliases: []string{"Salesforce", "Marc Benioff"}},
	{Symbol: "IBM", CompanyName: "International Business Machines", Aliases: []string{"International Business Machines", "Watson"}},
	{Symbol: "PYPL", CompanyName: "PayPal Holdings Inc.", Aliases: []string{"PayPal", "Venmo"}},
	{Symbol: "ADBE", CompanyName: "Adobe Inc.", Aliases: []string{"Adobe", "Photoshop"}},
}

// DefaultKeywords is the financial vocabulary that marks an article as
// market-relevant.
var DefaultKeywords = []string{
	"earnings", "revenue", "profit", "loss", "stock", "shares", "dividend",
	"analyst", "upgrade", "downgrade", "target", "price", "valuation",
	"quarterly", "annual", "guidance", "forecast", "outlook",
}

// DefaultCredibleSources are outlet name fragments that earn a small
// credibility bonus. Matching is case-insensitive substring.
var DefaultCredibleSources = []string{
	"bloomberg", "reuters", "cnbc", "wsj", "financial times",
	"yahoo finance", "marketwatch", "seeking alpha", "benzinga", "fool.com",
}
