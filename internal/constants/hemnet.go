package constants

// Адреса Hemnet по умолчанию. Все можно переопределить через окружение.
const (
	HemnetSearchPageURL = "https://www.hemnet.se/bostader"
	HemnetSearchAPIURL  = "https://www.hemnet.se/bostader/search"
	HemnetGraphQLURL    = "https://www.hemnet.se/graphql"
	HemnetSourceName    = "hemnet"
)

// HemnetAllowedDomains - домены, к которым разрешено ходить коллектору.
var HemnetAllowedDomains = []string{"www.hemnet.se", "bilder.hemnet.se"}

// Версия документа меняется вместе с текстом запроса.
const ListingImagesOperation = "ListingImagesV2"

// ListingImagesQuery - фиксированный GraphQL-документ для деталей объявления.
const ListingImagesQuery = `query ListingImagesV2($id: ID!) {
  listing(id: $id) {
    id
    streetAddress
    images(limit: 200) {
      url
    }
  }
}`

// Тема письма, если во входящем ее нет.
const DefaultSubject = "Hemnet slutpris"
