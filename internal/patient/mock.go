package patient

import "time"

// mockEpoch anchors the mock dataset's creation times so listings are stable.
var mockEpoch = time.Date(2024, time.January, 8, 9, 0, 0, 0, time.UTC)

// MockPatients returns the demo registry used to seed empty stores. Each call
// returns a fresh slice. Ids run USR001 upward, one day apart, with avatars
// assigned the same way Create assigns them.
func MockPatients() []Patient {
	rows := []NewPatient{
		{Name: "Aarav Sharma", Age: 54, Gender: "Male", SugarLevel: 162, BPSystolic: 152, BPDiastolic: 96, BMI: 31.4, RiskLevel: RiskHigh},
		{Name: "Priya Nair", Age: 29, Gender: "Female", SugarLevel: 88, BPSystolic: 112, BPDiastolic: 72, BMI: 21.6, RiskLevel: RiskLow},
		{Name: "Michael Okafor", Age: 47, Gender: "Male", SugarLevel: 131, BPSystolic: 138, BPDiastolic: 88, BMI: 28.9, RiskLevel: RiskMedium},
		{Name: "Sofia Rossi", Age: 68, Gender: "Female", SugarLevel: 144, BPSystolic: 158, BPDiastolic: 94, BMI: 27.2, RiskLevel: RiskHigh},
		{Name: "Chen Wei", Age: 38, Gender: "Male", SugarLevel: 97, BPSystolic: 124, BPDiastolic: 80, BMI: 24.3, RiskLevel: RiskLow},
		{Name: "Alex Morgan", Age: 33, Gender: "Other", SugarLevel: 104, BPSystolic: 128, BPDiastolic: 84, BMI: 30.8, RiskLevel: RiskMedium},
		{Name: "Fatima Zahra", Age: 59, Gender: "Female", SugarLevel: 178, BPSystolic: 146, BPDiastolic: 92, BMI: 33.5, RiskLevel: RiskHigh},
		{Name: "Lucas Silva", Age: 22, Gender: "Male", SugarLevel: 82, BPSystolic: 116, BPDiastolic: 74, BMI: 22.1, RiskLevel: RiskLow},
		{Name: "Hannah Becker", Age: 44, Gender: "Female", SugarLevel: 118, BPSystolic: 136, BPDiastolic: 86, BMI: 29.4, RiskLevel: RiskMedium},
		{Name: "Rahul Verma", Age: 71, Gender: "Male", SugarLevel: 139, BPSystolic: 164, BPDiastolic: 98, BMI: 26.7, RiskLevel: RiskHigh},
		{Name: "Yuki Tanaka", Age: 36, Gender: "Female", SugarLevel: 92, BPSystolic: 118, BPDiastolic: 76, BMI: 20.9, RiskLevel: RiskLow},
		{Name: "Jordan Lee", Age: 51, Gender: "Other", SugarLevel: 127, BPSystolic: 142, BPDiastolic: 90, BMI: 31.1, RiskLevel: RiskMedium},
	}

	out := make([]Patient, len(rows))
	for i, r := range rows {
		out[i] = Patient{
			ID:          FormatID(i + 1),
			Name:        r.Name,
			Age:         r.Age,
			Gender:      r.Gender,
			SugarLevel:  r.SugarLevel,
			BPSystolic:  r.BPSystolic,
			BPDiastolic: r.BPDiastolic,
			BMI:         r.BMI,
			RiskLevel:   r.RiskLevel,
			Avatar:      AvatarFor(i),
			CreatedAt:   mockEpoch.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return out
}
