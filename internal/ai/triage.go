package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/ai-claims/internal/application/port"
	"github.com/garyjia/ai-claims/internal/domain/entity"
)

const (
	triageConfidence     = 0.85
	imageConfidence      = 0.92
	annotationConfidence = 0.95

	urgencyElevated   = 0.9
	urgencyBaseline   = 0.3
	reputationHigh    = 0.8
	reputationDefault = 0.3
	reputationValue   = 10000.0

	fraudBase            = 0.1
	fraudDuplicateBump   = 0.65
	fraudNoEvidenceBump  = 0.15
	fraudNoEvidenceValue = 10000.0
)

var urgencyKeywords = []string{"urgent", "critical", "emergency", "asap"}

var negativeTerms = []string{"broken", "defective", "damaged", "missing", "wrong", "failed", "crack", "leak", "unacceptable", "terrible"}

var positiveTerms = []string{"thanks", "thank you", "appreciate", "good", "great", "satisfied"}

// keywordTerms are reported in TextAnalysis.Keywords when found in a description
var keywordTerms = []string{
	"defective", "missing", "wrong size", "damaged", "scratch", "dent", "crack",
	"corrosion", "leak", "bent", "broken", "tolerance", "shipping", "packaging",
}

// defectTerms maps description words to detected defect labels
var defectTerms = map[string]string{
	"scratch":   "scratch",
	"dent":      "dent",
	"crack":     "crack",
	"corrosion": "corrosion",
	"missing":   "missing_component",
	"bent":      "deformation",
}

var defaultDefect = map[entity.Category]string{
	entity.CategoryDefective:       "defect",
	entity.CategoryDamagedShipping: "dent",
	entity.CategoryQualityIssue:    "surface_defect",
	entity.CategoryWrongSize:       "dimension_mismatch",
	entity.CategoryMissingParts:    "missing_component",
	entity.CategoryOther:           "anomaly",
}

// ClaimLister is the slice of the claim store used for duplicate detection
type ClaimLister interface {
	List(ctx context.Context, filter port.ClaimFilter) ([]*entity.Claim, error)
}

// TriageAnalyzer is a rule-based triage stage
type TriageAnalyzer struct {
	claims ClaimLister
	logger *zap.Logger
}

// NewTriageAnalyzer creates a triage analyzer. claims may be nil, which
// disables duplicate detection.
func NewTriageAnalyzer(claims ClaimLister, logger *zap.Logger) *TriageAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageAnalyzer{claims: claims, logger: logger}
}

// Analyze runs duplicate, image, text and risk analysis
func (a *TriageAnalyzer) Analyze(ctx context.Context, claim *entity.Claim) (*entity.TriageAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	duplicate, err := a.checkDuplicates(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}

	analysis := &entity.TriageAnalysis{
		ClaimID:        claim.ID,
		AIConfidence:   triageConfidence,
		DuplicateCheck: duplicate,
		TextAnalysis:   analyzeText(claim.Description),
		RiskAssessment: assessRisk(claim, duplicate),
	}
	if len(claim.Images) > 0 {
		analysis.ImageAnalysis = analyzeImages(claim)
	}

	a.logger.Info("Triage completed",
		zap.String("claim_id", claim.ID),
		zap.Bool("duplicate", duplicate.IsDuplicate),
		zap.Float64("fraud_risk", analysis.RiskAssessment.FraudRisk),
		zap.Float64("urgency", analysis.TextAnalysis.UrgencyScore))

	return analysis, nil
}

// checkDuplicates looks for other claims on the same customer, order and product
func (a *TriageAnalyzer) checkDuplicates(ctx context.Context, claim *entity.Claim) (entity.DuplicateCheck, error) {
	result := entity.DuplicateCheck{SimilarClaims: []string{}, Confidence: 0.1}
	if a.claims == nil {
		return result, nil
	}
	if claim.CustomerID == "" && claim.OrderNumber == "" && claim.ProductID == "" {
		return result, nil
	}

	matches, err := a.claims.List(ctx, port.ClaimFilter{
		CustomerID:  claim.CustomerID,
		OrderNumber: claim.OrderNumber,
		ProductID:   claim.ProductID,
	})
	if err != nil {
		return result, err
	}

	for _, other := range matches {
		if other.ID != claim.ID && sameOrderLine(other, claim) && other.SubmissionDate.Before(claim.SubmissionDate) {
			result.SimilarClaims = append(result.SimilarClaims, other.ID)
		}
	}
	if len(result.SimilarClaims) > 0 {
		result.IsDuplicate = true
		result.Confidence = 0.9
	}
	return result, nil
}

// sameOrderLine compares the keys exactly; the store filter treats empty keys as wildcards
func sameOrderLine(a, b *entity.Claim) bool {
	return a.CustomerID == b.CustomerID && a.OrderNumber == b.OrderNumber && a.ProductID == b.ProductID
}

func analyzeImages(claim *entity.Claim) *entity.ImageAnalysis {
	desc := strings.ToLower(claim.Description)

	var defects []string
	for _, term := range []string{"scratch", "dent", "crack", "corrosion", "missing", "bent"} {
		if strings.Contains(desc, term) {
			defects = append(defects, defectTerms[term])
		}
	}
	if len(defects) == 0 {
		label, ok := defaultDefect[claim.Category]
		if !ok {
			label = defaultDefect[entity.CategoryOther]
		}
		defects = append(defects, label)
	}

	annotations := make([]entity.ImageAnnotation, 0, len(claim.Images))
	for _, img := range claim.Images {
		annotations = append(annotations, entity.ImageAnnotation{
			Image:      img,
			Type:       "defect",
			Confidence: annotationConfidence,
		})
	}

	return &entity.ImageAnalysis{
		DefectsDetected: defects,
		Confidence:      imageConfidence,
		Annotations:     annotations,
	}
}

func analyzeText(description string) entity.TextAnalysis {
	desc := strings.ToLower(description)

	urgency := urgencyBaseline
	if containsAny(desc, urgencyKeywords) {
		urgency = urgencyElevated
	}

	keywords := []string{}
	for _, term := range keywordTerms {
		if strings.Contains(desc, term) {
			keywords = append(keywords, strings.ReplaceAll(term, " ", "_"))
		}
	}

	return entity.TextAnalysis{
		Sentiment:    sentiment(desc),
		Keywords:     keywords,
		UrgencyScore: urgency,
	}
}

// sentiment is (positive - negative) / matched terms, in [-1, 1]
func sentiment(desc string) float64 {
	var pos, neg int
	for _, term := range positiveTerms {
		if strings.Contains(desc, term) {
			pos++
		}
	}
	for _, term := range negativeTerms {
		if strings.Contains(desc, term) {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

func assessRisk(claim *entity.Claim, duplicate entity.DuplicateCheck) entity.RiskAssessment {
	fraud := fraudBase
	if duplicate.IsDuplicate {
		fraud += fraudDuplicateBump
	}
	if len(claim.Images) == 0 && len(claim.Attachments) == 0 && claim.EstimatedValue > fraudNoEvidenceValue {
		fraud += fraudNoEvidenceBump
	}
	if fraud > 1 {
		fraud = 1
	}

	reputation := reputationDefault
	if claim.EstimatedValue > reputationValue {
		reputation = reputationHigh
	}

	return entity.RiskAssessment{
		FraudRisk:       fraud,
		FinancialImpact: claim.EstimatedValue,
		ReputationRisk:  reputation,
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
