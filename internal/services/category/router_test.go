package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

func defaultRouter() *Router {
	return NewRouter(common.DefaultCategoryRules(), arbor.NewLogger())
}

func TestRouteKeywordMatching(t *testing.T) {
	router := defaultRouter()

	tests := []struct {
		name string
		text string
		want models.Category
	}{
		{name: "esg keyword", text: "What is your ESG policy?", want: models.CategoryESG},
		{name: "governing docs keyword", text: "Provide a copy of the limited partnership agreement.", want: models.CategoryGoverningDocs},
		{name: "fundraising keyword", text: "Describe the current capital raise timeline.", want: models.CategoryFundraising},
		{name: "post launch keyword", text: "Describe the fund's risk process.", want: models.CategoryPostLaunch},
		{name: "no match falls back to general", text: "Who are the key persons?", want: models.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := []models.Question{{ID: "qst_1", Text: tt.text, Category: models.CategoryUnclassified}}
			router.Route(questions)
			assert.Equal(t, tt.want, questions[0].Category)
		})
	}
}

func TestRoutePriorityWinsOnMultipleMatches(t *testing.T) {
	router := defaultRouter()

	// Matches both esg (priority 50) and fundraising (priority 30).
	questions := []models.Question{{
		ID:       "qst_1",
		Text:     "Describe the ESG considerations in your fundraising materials.",
		Category: models.CategoryUnclassified,
	}}
	router.Route(questions)
	assert.Equal(t, models.CategoryESG, questions[0].Category)
}

func TestRouteChildInheritsParentCategory(t *testing.T) {
	router := defaultRouter()

	questions := []models.Question{
		{ID: "qst_1", Text: "Does the fund have an ESG policy?", Category: models.CategoryUnclassified},
		{ID: "qst_2", ParentID: "qst_1", Text: "If yes, describe how it is reviewed.", Category: models.CategoryUnclassified},
	}
	router.Route(questions)

	assert.Equal(t, models.CategoryESG, questions[0].Category)
	assert.Equal(t, models.CategoryESG, questions[1].Category, "child without its own match inherits")
}

func TestRouteChildOverridesWithHigherPriorityMatch(t *testing.T) {
	router := defaultRouter()

	questions := []models.Question{
		{ID: "qst_1", Text: "Describe the current capital raise.", Category: models.CategoryUnclassified},
		{ID: "qst_2", ParentID: "qst_1", Text: "If applicable, describe the ESG disclosures provided to investors.", Category: models.CategoryUnclassified},
	}
	router.Route(questions)

	assert.Equal(t, models.CategoryFundraising, questions[0].Category)
	assert.Equal(t, models.CategoryESG, questions[1].Category, "higher priority own match overrides inheritance")
}

func TestRouteChildKeepsParentOnLowerPriorityMatch(t *testing.T) {
	router := defaultRouter()

	questions := []models.Question{
		{ID: "qst_1", Text: "What are your ESG commitments?", Category: models.CategoryUnclassified},
		{ID: "qst_2", ParentID: "qst_1", Text: "If yes, how does this affect ongoing reporting?", Category: models.CategoryUnclassified},
	}
	router.Route(questions)

	assert.Equal(t, models.CategoryESG, questions[0].Category)
	assert.Equal(t, models.CategoryESG, questions[1].Category, "lower priority own match does not override")
}

func TestNewRouterDropsUnknownCategories(t *testing.T) {
	rules := []common.CategoryRule{
		{Category: "esg", Priority: 50, Keywords: []string{"esg"}},
		{Category: "made_up", Priority: 99, Keywords: []string{"esg"}},
	}
	router := NewRouter(rules, arbor.NewLogger())

	questions := []models.Question{{ID: "qst_1", Text: "ESG policy?", Category: models.CategoryUnclassified}}
	router.Route(questions)
	assert.Equal(t, models.CategoryESG, questions[0].Category)
}

func TestRouteIsDeterministic(t *testing.T) {
	router := defaultRouter()

	for i := 0; i < 10; i++ {
		questions := []models.Question{{ID: "qst_1", Text: "Describe ESG reporting in the LPA.", Category: models.CategoryUnclassified}}
		router.Route(questions)
		assert.Equal(t, models.CategoryESG, questions[0].Category)
	}
}
