package accounting

// SystemAccountDef describes an account the ledger provisions on demand for
// automatic postings
type SystemAccountDef struct {
	Code        string
	Name        string
	Type        AccountType
	Description string
}

var (
	AccountsReceivable = SystemAccountDef{"1102", "Cuentas por Cobrar", AccountTypeAsset, "Cuentas por cobrar a clientes"}
	ISLRWithheldAsset  = SystemAccountDef{"1106", "ISLR Retenido", AccountTypeAsset, "Anticipo de ISLR retenido"}
	AccountsPayable    = SystemAccountDef{"2101", "Cuentas por Pagar", AccountTypeLiability, "Obligaciones con proveedores"}
	IVAPayable         = SystemAccountDef{"2102", "IVA por Pagar", AccountTypeLiability, "Débito fiscal IVA"}
	IVAWithheldPayable = SystemAccountDef{"2104", "IVA Retenido por Pagar", AccountTypeLiability, "IVA retenido a proveedores"}
	RetainedEarnings   = SystemAccountDef{"3102", "Utilidades Retenidas", AccountTypeEquity, "Resultados acumulados"}
	IncomeSummary      = SystemAccountDef{"3999", "Resumen de Ingresos y Gastos", AccountTypeEquity, "Cuenta puente de cierre"}
	SalesRevenue       = SystemAccountDef{"4101", "Ingresos por Ventas", AccountTypeIncome, "Ventas de bienes y servicios"}
)

// SystemAccounts lists every account the ledger may create by itself
var SystemAccounts = []SystemAccountDef{
	AccountsReceivable, ISLRWithheldAsset, AccountsPayable, IVAPayable,
	IVAWithheldPayable, RetainedEarnings, IncomeSummary, SalesRevenue,
}

// NetIncomeLineCode and NetIncomeLineName label the synthetic equity line of the balance sheet
const (
	NetIncomeLineCode = "399"
	NetIncomeLineName = "Utilidad Neta del Período"
)
