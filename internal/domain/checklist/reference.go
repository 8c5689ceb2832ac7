package checklist

// Category names one of the fixed checklists shown on the booking form.
type Category string

const (
	CategoryVehicle Category = "vehicle"
	CategoryDriver  Category = "driver"
	CategoryPreJob  Category = "pre_job"
)

// Categories lists the known categories in display order.
var Categories = []Category{CategoryVehicle, CategoryDriver, CategoryPreJob}

// DefaultReferenceLists are the items a dispatcher ticks off before booking a job.
var DefaultReferenceLists = map[Category][]string{
	CategoryVehicle: {
		"Engine oil level",
		"Coolant level",
		"Brake fluid level",
		"Tyre pressure",
		"Tyre tread depth",
		"Spare tyre",
		"Headlights",
		"Tail lights",
		"Indicators",
		"Brake lights",
		"Horn",
		"Wipers and washer fluid",
		"Mirrors",
		"Seat belts",
		"Battery condition",
		"Fuel level",
		"First aid kit",
		"Fire extinguisher",
		"Registration documents",
		"Insurance certificate",
	},
	CategoryDriver: {
		"Valid driving licence",
		"Licence class matches vehicle",
		"Identity card",
		"Uniform",
		"Fit for duty",
		"Rest hours observed",
		"No alcohol declaration",
		"Mobile phone charged",
		"Navigation app installed",
		"Route briefing received",
		"Customer contact details",
		"Emergency contact numbers",
		"Fuel card",
		"Toll tag",
		"Vehicle keys",
		"Delivery documents",
		"Safety shoes",
		"Reflective vest",
		"Trip sheet",
	},
	CategoryPreJob: {
		"Job date confirmed",
		"Pickup address confirmed",
		"Drop address confirmed",
		"Stopovers confirmed",
		"Customer notified",
		"Load weight checked",
		"Load dimensions checked",
		"Loading equipment available",
		"Cargo secured",
		"Fragile items marked",
		"Permits obtained",
		"Route checked for restrictions",
		"Traffic conditions reviewed",
		"Weather reviewed",
		"Estimated cost shared",
		"Payment terms agreed",
		"Driver assigned",
		"Vehicle assigned",
		"Backup vehicle identified",
		"Dispatcher sign-off",
	},
}
