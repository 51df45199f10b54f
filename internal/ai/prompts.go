package ai

import (
	"fmt"
	"strings"
)

const productSystemPrompt = `Tu es rédacteur pour Nuage, une marque française premium d'accessoires chicha.

Ton: calme, assuré, jamais insistant. Un connaisseur qui conseille, pas un vendeur.
Mets en avant la qualité, l'expérience et l'esthétique.

Règles:
- Écris toujours en français.
- Nom: court et élégant.
- Description: 2 à 4 phrases.
- Description courte: une phrase d'accroche.
- Catégorie: une valeur parmi chicha, bol, tuyau, charbon, accessoire.
- Prix suggéré en centimes d'euro (4999 = 49,99 €), positionnement premium.
- Ne mentionne jamais le prix d'origine ni la provenance.`

const productReviewsAddendum = `
Des avis clients positifs sont fournis. Inspire-toi des qualités qu'ils citent sans les recopier.`

const reviewSystemPrompt = `Tu traduis des avis clients de boutique en ligne vers le français.

Règles:
- Français naturel, jamais mot à mot.
- Garde le sentiment et le ton d'origine.
- Conserve les détails techniques et les noms de produits.
- N'ajoute rien et n'invente rien.
- Si l'avis est déjà en français, renvoie-le tel quel.
- Réponds uniquement avec la traduction.`

const productResponseShape = `Réponds en JSON strict:
{
  "name": "Nom du produit",
  "description": "Description longue",
  "shortDescription": "Description courte",
  "category": "chicha|bol|tuyau|charbon|accessoire",
  "suggestedPriceCents": 4999
}`

func orUnavailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Non disponible"
	}
	return s
}

func buildProductPrompt(in ProductInput) string {
	var b strings.Builder
	b.WriteString("Produit brut à rédiger pour Nuage:\n\n")
	fmt.Fprintf(&b, "Nom original: %s\n", orUnavailable(in.Name))
	fmt.Fprintf(&b, "Description originale: %s\n", orUnavailable(in.Description))
	if in.ShortDescription != "" {
		fmt.Fprintf(&b, "Description courte originale: %s\n", in.ShortDescription)
	}
	if in.Category != "" {
		fmt.Fprintf(&b, "Catégorie source: %s\n", in.Category)
	}
	fmt.Fprintf(&b, "Prix source: %s\n", orUnavailable(in.PriceHint))
	fmt.Fprintf(&b, "Source: %s\n", orUnavailable(in.SourceName))

	if len(in.Reviews) > 0 {
		b.WriteString("\nAvis clients:\n")
		for _, r := range in.Reviews {
			fmt.Fprintf(&b, "- (%d/5) %s\n", r.Rating, r.Text)
		}
	}

	b.WriteString("\n")
	b.WriteString(productResponseShape)
	return b.String()
}

func buildReviewPrompt(text, language string) string {
	if language != "" {
		return fmt.Sprintf("Traduis cet avis du %s vers le français:\n\n%s", language, text)
	}
	return fmt.Sprintf("Traduis cet avis en français:\n\n%s", text)
}
