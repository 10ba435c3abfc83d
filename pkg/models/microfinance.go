package models

import "github.com/pkg/errors"

func required(field string) error {
	return errors.Wrapf(ErrEmptyInput, "%s is required", field)
}

// SocialData is the optional social graph attached to a credit assessment.
type SocialData struct {
	Nodes       []float64   `json:"nodes"`
	Connections [][]float64 `json:"connections"`
}

// CreditAssessmentRequest represents a request to score a borrower
type CreditAssessmentRequest struct {
	Data       []float64   `json:"data"`
	SocialData *SocialData `json:"social_data,omitempty"`
}

// Validate checks if the CreditAssessmentRequest is valid
func (r *CreditAssessmentRequest) Validate() error {
	if len(r.Data) == 0 {
		return required("data")
	}
	return nil
}

// CreditAssessment is the composed credit score report. FederatedScore is
// nil until the federated ensemble has been trained.
type CreditAssessment struct {
	AlternativeScore float64   `json:"alternative_score"`
	GNNScore         []float64 `json:"gnn_score"`
	FinalScore       float64   `json:"final_score"`
	FederatedScore   *float64  `json:"federated_score"`
	DynamicScore     float64   `json:"dynamic_score"`
}

// ComplianceRequest represents a request to run every compliance check
type ComplianceRequest struct {
	UserData        map[string]interface{} `json:"user_data"`
	DocumentText    string                 `json:"document_text"`
	TransactionData []float64              `json:"transaction_data"`
	BioData         []float64              `json:"bio_data,omitempty"`
	ContractID      string                 `json:"contract_id,omitempty"`
	Conditions      map[string]interface{} `json:"conditions,omitempty"`
}

// Validate checks if the ComplianceRequest is valid
func (r *ComplianceRequest) Validate() error {
	if len(r.UserData) == 0 {
		return required("user_data")
	}
	if r.DocumentText == "" {
		return required("document_text")
	}
	if len(r.TransactionData) == 0 {
		return required("transaction_data")
	}
	return nil
}

// BiometricID returns the identifier biometric checks are keyed by.
func (r *ComplianceRequest) BiometricID() string {
	id, _ := r.UserData["idNumber"].(string)
	return id
}

// ComplianceResult reports each check. Optional checks that did not run are
// nil.
type ComplianceResult struct {
	KYCVerified        bool  `json:"kyc_verified"`
	DocumentVerified   bool  `json:"document_verified"`
	AnomalyDetected    bool  `json:"anomaly_detected"`
	AMLCheckPassed     bool  `json:"aml_check_passed"`
	BiometricVerified  *bool `json:"biometric_verified"`
	ContractCompliance *bool `json:"contract_compliance"`
	ComplianceStatus   bool  `json:"compliance_status"`
}

// BiometricEnrollRequest represents a request to store a biometric template
type BiometricEnrollRequest struct {
	UserID  string    `json:"user_id"`
	BioData []float64 `json:"bio_data"`
}

// Validate checks if the BiometricEnrollRequest is valid
func (r *BiometricEnrollRequest) Validate() error {
	if r.UserID == "" {
		return required("user_id")
	}
	if len(r.BioData) == 0 {
		return required("bio_data")
	}
	return nil
}

// ComplianceRuleRequest represents a request to set a contract rule
type ComplianceRuleRequest struct {
	ContractID string                 `json:"contract_id"`
	Conditions map[string]interface{} `json:"conditions"`
}

// Validate checks if the ComplianceRuleRequest is valid
func (r *ComplianceRuleRequest) Validate() error {
	if r.ContractID == "" {
		return required("contract_id")
	}
	if len(r.Conditions) == 0 {
		return required("conditions")
	}
	return nil
}

// BehaviorRequest represents a request to analyze behavioral features
type BehaviorRequest struct {
	Features []float64 `json:"features"`
}

// Validate checks if the BehaviorRequest is valid
func (r *BehaviorRequest) Validate() error {
	if len(r.Features) == 0 {
		return required("features")
	}
	return nil
}

// BehaviorAnalysis is the behavioral report. LifestyleGroup is nil until the
// segmenter has been fitted.
type BehaviorAnalysis struct {
	Sentiment       float64   `json:"sentiment"`
	LifestyleGroup  *int      `json:"lifestyle_group"`
	Stability       float64   `json:"stability"`
	PrivateFeatures []float64 `json:"private_features"`
	UtilityScore    float64   `json:"utility_score"`
}

// DefaultESGRisk is used when an ESG request carries no risk.
const DefaultESGRisk = 0.5

// ESGRequest represents a request to track and score ESG data
type ESGRequest struct {
	SourceData map[string][]float64 `json:"source_data"`
	Factors    []float64            `json:"factors"`
	ImpactData []float64            `json:"impact_data"`
	Risk       *float64             `json:"risk,omitempty"`
}

// Validate checks if the ESGRequest is valid
func (r *ESGRequest) Validate() error {
	if len(r.SourceData) == 0 {
		return required("source_data")
	}
	if len(r.Factors) == 0 {
		return required("factors")
	}
	if len(r.ImpactData) == 0 {
		return required("impact_data")
	}
	return nil
}

// RiskOrDefault returns the requested risk or DefaultESGRisk.
func (r *ESGRequest) RiskOrDefault() float64 {
	if r.Risk == nil {
		return DefaultESGRisk
	}
	return *r.Risk
}

// ESGReport is the ESG tracking result.
type ESGReport struct {
	AggregatedData   map[string]float64 `json:"aggregated_data"`
	ESGScore         float64            `json:"esg_score"`
	Impact           float64            `json:"impact"`
	OptimizedBalance float64            `json:"optimized_balance"`
	Visualization    map[string]float64 `json:"visualization"`
}

// LoanRequest represents a request for loan recommendations
type LoanRequest struct {
	UserID       *int     `json:"user_id"`
	Score        float64  `json:"score"`
	Risk         float64  `json:"risk"`
	Query        string   `json:"query,omitempty"`
	Action       *float64 `json:"action,omitempty"`
	Transactions []string `json:"transactions,omitempty"`
}

// Validate checks if the LoanRequest is valid
func (r *LoanRequest) Validate() error {
	if r.UserID == nil {
		return required("user_id")
	}
	return nil
}

// LoanTerms is a structured offer. AmountDisplay is the amount rounded to
// cents.
type LoanTerms struct {
	Amount        float64 `json:"amount"`
	Rate          float64 `json:"rate"`
	AmountDisplay string  `json:"amount_display"`
}

// LoanRecommendation bundles every loan-side output. Optional parts that were
// not requested are nil.
type LoanRecommendation struct {
	Recommendations []int     `json:"recommendations"`
	Terms           LoanTerms `json:"terms"`
	Guidance        *string   `json:"guidance"`
	GameReward      *float64  `json:"game_reward"`
	CrossSell       []string  `json:"cross_sell_recommendations"`
}

// SupervisedSet is a batch of samples with one target each.
type SupervisedSet struct {
	Samples [][]float64 `json:"samples"`
	Targets []float64   `json:"targets"`
}

// GraphTraining is one graph with per-node targets.
type GraphTraining struct {
	Nodes       []float64   `json:"nodes"`
	Connections [][]float64 `json:"connections"`
	Targets     []float64   `json:"targets"`
}

// FederatedTraining holds one shard per institution.
type FederatedTraining struct {
	Datasets [][][]float64 `json:"datasets"`
	Targets  [][]float64   `json:"targets"`
}

// RatingInput is one (user, item, rating) observation.
type RatingInput struct {
	User   int     `json:"user"`
	Item   int     `json:"item"`
	Rating float64 `json:"rating"`
}

// TrainingData names the models to train. Absent sections are skipped.
// AltData/Targets train the alternative data fusion scorer.
type TrainingData struct {
	AltData      [][]float64        `json:"alt_data,omitempty"`
	Targets      []float64          `json:"targets,omitempty"`
	Graph        *GraphTraining     `json:"graph,omitempty"`
	Federated    *FederatedTraining `json:"federated,omitempty"`
	Sentiment    *SupervisedSet     `json:"sentiment,omitempty"`
	AML          [][]float64        `json:"aml,omitempty"`
	Lifestyle    [][]float64        `json:"lifestyle,omitempty"`
	Impact       *SupervisedSet     `json:"impact,omitempty"`
	Ratings      []RatingInput      `json:"ratings,omitempty"`
	Transactions [][]string         `json:"transactions,omitempty"`
	Epochs       int                `json:"epochs,omitempty"`
	LearningRate float64            `json:"learning_rate,omitempty"`
}

// Empty reports whether no model is named.
func (d *TrainingData) Empty() bool {
	return len(d.AltData) == 0 && d.Graph == nil && d.Federated == nil &&
		d.Sentiment == nil && len(d.AML) == 0 && len(d.Lifestyle) == 0 &&
		d.Impact == nil && len(d.Ratings) == 0 && len(d.Transactions) == 0
}

// TrainRequest represents a request to train models
type TrainRequest struct {
	TrainingData *TrainingData `json:"training_data"`
}

// Validate checks if the TrainRequest is valid
func (r *TrainRequest) Validate() error {
	if r.TrainingData == nil || r.TrainingData.Empty() {
		return required("training_data")
	}
	if r.TrainingData.Epochs < 0 {
		return errors.Wrap(ErrInvalidArgument, "epochs must not be negative")
	}
	return nil
}

// TrainingSummary lists the models a training run updated, in training
// order.
type TrainingSummary struct {
	Trained []string `json:"trained"`
}
